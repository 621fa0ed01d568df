package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// SearchBuses handles GET /api/buses/search
//
// Query params:
//   - start (required) string, start stop name
//   - end   (required) string, destination stop name
//
// Response 200:
//
//	{"success":true,"message":"Found 1 available buses","data":{"total_buses":1,
//	 "search_params":{"start_destination":"Central","end_destination":"Harbor"},
//	 "buses":[{"bus_id":"B1","bus_number":"42","bus_name":"Blue Line",
//	 "last_stop_passed":{"stop_id":null,"name":"Not started"},"status":"inactive",
//	 "current_location":null}]}}
//
// Unknown stop names yield success=false with status 200.
func (h *Handler) SearchBuses(c *gin.Context) {
	start, ok := requiredQuery(c, "start")
	if !ok {
		return
	}
	end, ok := requiredQuery(c, "end")
	if !ok {
		return
	}

	res, err := h.buses.SearchBuses(c.Request.Context(), start, end)
	if err != nil {
		respondError(c, err)
		return
	}

	type lastStopJSON struct {
		StopID *string `json:"stop_id"`
		Name   string  `json:"name"`
	}
	type busJSON struct {
		BusID           string        `json:"bus_id"`
		BusNumber       string        `json:"bus_number"`
		BusName         string        `json:"bus_name"`
		LastStopPassed  lastStopJSON  `json:"last_stop_passed"`
		Status          string        `json:"status"`
		CurrentLocation *locationJSON `json:"current_location"`
	}

	out := make([]busJSON, len(res.Buses))
	for i, b := range res.Buses {
		last := lastStopJSON{Name: b.LastStop.Name}
		if b.LastStop.ID != "" {
			id := b.LastStop.ID
			last.StopID = &id
		}
		out[i] = busJSON{
			BusID:           b.BusID,
			BusNumber:       b.BusNumber,
			BusName:         b.BusName,
			LastStopPassed:  last,
			Status:          b.Status,
			CurrentLocation: toLocationJSON(b.CurrentLocation),
		}
	}

	respondOK(c, fmt.Sprintf("Found %d available buses", len(out)), gin.H{
		"total_buses": len(out),
		"search_params": gin.H{
			"start_destination": res.Start,
			"end_destination":   res.End,
		},
		"buses": out,
	})
}

// UpdateBusLocation handles POST /api/buses/:busId/location
//
// Query params:
//   - lat (required) float64, WGS-84 latitude
//   - lng (required) float64, WGS-84 longitude
//
// Response 200:
//
//	{"success":true,"message":"Location updated successfully","data":{"bus_id":"B1",
//	 "bus_number":"42","updated_location":{"lat":10.01,"lng":20,"geohash":"..."},
//	 "last_stop_passed":"S2","upcoming_stops":[{"stop_id":"S3","name":"Harbor"}],
//	 "updated_at":"2026-03-01T08:30:00Z"}}
//
// Response 400: missing, malformed or out-of-range coordinates.
func (h *Handler) UpdateBusLocation(c *gin.Context) {
	lat, ok := parseRequiredFloat(c, "lat")
	if !ok {
		return
	}
	lng, ok := parseRequiredFloat(c, "lng")
	if !ok {
		return
	}

	res, err := h.buses.UpdateBusLocation(c.Request.Context(), c.Param("busId"), lat, lng)
	if err != nil {
		respondError(c, err)
		return
	}

	type stopJSON struct {
		StopID string `json:"stop_id"`
		Name   string `json:"name"`
	}
	upcoming := make([]stopJSON, len(res.Upcoming))
	for i, s := range res.Upcoming {
		upcoming[i] = stopJSON{StopID: s.ID, Name: s.Name}
	}

	respondOK(c, "Location updated successfully", gin.H{
		"bus_id":     res.BusID,
		"bus_number": res.BusNumber,
		"updated_location": gin.H{
			"lat":     res.Location.Lat,
			"lng":     res.Location.Lng,
			"geohash": res.Location.Cell(),
		},
		"last_stop_passed": res.LastStopPassed,
		"upcoming_stops":   upcoming,
		"updated_at":       res.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

// GetBusDetails handles GET /api/buses/:busId
//
// Response 200:
//
//	{"success":true,"message":"Bus details for 42","data":{"bus_info":{...},
//	 "last_stop_passed":"S1","all_stops":[{"stop_id":"S1","name":"Central",
//	 "location":{"lat":10,"lng":20},"order":1,"distance_from_bus":"0m",
//	 "status":"passed"}],"total_stops":1}}
func (h *Handler) GetBusDetails(c *gin.Context) {
	d, err := h.buses.GetBusDetails(c.Request.Context(), c.Param("busId"))
	if err != nil {
		respondError(c, err)
		return
	}

	type stopJSON struct {
		StopID          string        `json:"stop_id"`
		Name            string        `json:"name"`
		Location        *locationJSON `json:"location"`
		Order           int           `json:"order"`
		DistanceFromBus string        `json:"distance_from_bus"`
		Status          string        `json:"status"`
	}
	stops := make([]stopJSON, len(d.Stops))
	for i, s := range d.Stops {
		stops[i] = stopJSON{
			StopID:          s.StopID,
			Name:            s.Name,
			Location:        toLocationJSON(s.Location),
			Order:           s.Order,
			DistanceFromBus: s.DistanceLabel(),
			Status:          s.StatusLabel(),
		}
	}

	respondOK(c, "Bus details for "+d.Bus.Number, gin.H{
		"bus_info": gin.H{
			"bus_id":           d.Bus.ID,
			"bus_number":       d.Bus.Number,
			"status":           d.Bus.Status,
			"journey":          d.State.String(),
			"current_location": toLocationJSON(d.Bus.CurrentLocation),
			"last_updated":     formatTime(d.Bus.LastUpdated),
		},
		"last_stop_passed": d.Bus.LastStopPassed,
		"all_stops":        stops,
		"total_stops":      len(stops),
	})
}

// GetBusByName handles GET /api/buses/by-name/:busName
//
// Response 200:
//
//	{"success":true,"message":"Last stop found","data":{"stop_id":"S2",
//	 "name":"Market","location":{"lat":10.01,"lng":20}}}
//
// A bus that has not passed any stop yields success=true and data=null.
func (h *Handler) GetBusByName(c *gin.Context) {
	last, err := h.buses.GetBusByName(c.Request.Context(), c.Param("busName"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !last.Started {
		c.JSON(http.StatusOK, envelope{Success: true, Message: "Bus hasn't started its journey", Data: nil})
		return
	}

	respondOK(c, "Last stop found", gin.H{
		"stop_id":  last.StopID,
		"name":     last.Name,
		"location": toLocationJSON(last.Location),
	})
}
