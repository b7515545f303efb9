package api

import (
	"math"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/joeshaw/bods-gtfs/internal/models"
)

// handleShape handles the shape detail endpoint
func (s *Server) handleShape(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	points, err := s.store.GetShapePoints(r.Context(), id)
	if err != nil {
		s.sendStoreError(w, r, err)
		return
	}
	if len(points) == 0 {
		s.sendErrorResponse(w, http.StatusNotFound, "Shape not found")
		return
	}

	s.sendResponse(w, Response{
		Data:  shapeToResource(id, points),
		Links: map[string]string{"self": "/shapes/" + id},
	})
}

// shapeToResource converts shape points into a resource carrying both the
// raw points and an encoded polyline. Points without coordinates are left
// out of the polyline.
func shapeToResource(id string, points []*models.ShapePoint) Resource {
	coords := make([][2]float64, 0, len(points))
	pointsData := make([]map[string]any, len(points))

	for i, point := range points {
		if point.Latitude != nil && point.Longitude != nil {
			coords = append(coords, [2]float64{*point.Latitude, *point.Longitude})
		}
		pointsData[i] = map[string]any{
			"latitude":      point.Latitude,
			"longitude":     point.Longitude,
			"sequence":      point.Sequence,
			"dist_traveled": point.DistTraveled,
		}
	}

	return Resource{
		Type: "shape",
		ID:   id,
		Attributes: map[string]any{
			"polyline": encodePolyline(coords),
			"points":   pointsData,
		},
		Links: map[string]string{
			"self": "/shapes/" + id,
		},
	}
}

// encodePolyline encodes coordinates in the Google polyline format
// https://developers.google.com/maps/documentation/utilities/polylinealgorithm
func encodePolyline(coords [][2]float64) string {
	if len(coords) == 0 {
		return ""
	}

	result := make([]byte, 0, len(coords)*4)

	var prevLat, prevLng int
	for _, coord := range coords {
		lat5 := int(math.Round(coord[0] * 1e5))
		lng5 := int(math.Round(coord[1] * 1e5))

		result = appendEncoded(result, lat5-prevLat)
		result = appendEncoded(result, lng5-prevLng)

		prevLat, prevLng = lat5, lng5
	}

	return string(result)
}

func appendEncoded(result []byte, value int) []byte {
	value = value << 1
	if value < 0 {
		value = ^value
	}

	for value >= 0x20 {
		result = append(result, byte((0x20|(value&0x1f))+63))
		value >>= 5
	}

	return append(result, byte(value+63))
}
