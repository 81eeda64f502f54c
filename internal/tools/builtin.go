package tools

// RegisterHotelBookingMocks registers the mock tool catalogue for the hotel
// booking end-to-end scenario.
func RegisterHotelBookingMocks(r *Registry) {
	r.Register("check_availability", Mock{
		MinLatencyMS: 200, MaxLatencyMS: 800,
		Handler: func(args map[string]any) (map[string]any, error) {
			return map[string]any{
				"available": true,
				"rooms": []map[string]any{
					{"type": "Standard Room", "price": 399},
					{"type": "King Room", "price": 499},
					{"type": "Suite", "price": 899},
				},
			}, nil
		},
	})

	r.Register("create_booking", Mock{
		MinLatencyMS: 500, MaxLatencyMS: 2000, FailureRate: 0.1,
		Handler: func(args map[string]any) (map[string]any, error) {
			return map[string]any{
				"booking_id": "BK20240115001",
				"status":     "confirmed",
				"checkin":    stringArg(args, "checkin", ""),
				"nights":     intArg(args, "nights", 1),
			}, nil
		},
	})

	r.Register("cancel_booking", Mock{
		MinLatencyMS: 300, MaxLatencyMS: 1000,
		Handler: func(args map[string]any) (map[string]any, error) {
			return map[string]any{
				"booking_id": stringArg(args, "booking_id", ""),
				"status":     "cancelled",
				"refund":     true,
			}, nil
		},
	})

	r.Register("get_booking_details", Mock{
		MinLatencyMS: 100, MaxLatencyMS: 400,
		Handler: func(args map[string]any) (map[string]any, error) {
			return map[string]any{
				"booking_id":   stringArg(args, "booking_id", "BK20240115001"),
				"status":       "confirmed",
				"room_type":    "King Room",
				"checkin":      "2024-01-19",
				"nights":       2,
				"price_total":  998,
			}, nil
		},
	})

	r.Register("long_running_search", Mock{
		MinLatencyMS: 3000, MaxLatencyMS: 8000,
		Handler: func(args map[string]any) (map[string]any, error) {
			return map[string]any{
				"results": []map[string]any{
					{"hotel": "Grand Hotel", "distance": "0.5km", "price": 599},
					{"hotel": "City Inn", "distance": "1.2km", "price": 299},
				},
			}, nil
		},
	})
}

// RegisterGeneralMocks registers general-purpose mock tools useful across
// scenarios.
func RegisterGeneralMocks(r *Registry) {
	r.Register("get_weather", Mock{
		MinLatencyMS: 100, MaxLatencyMS: 300,
		Handler: func(args map[string]any) (map[string]any, error) {
			return map[string]any{
				"location":    stringArg(args, "location", "Beijing"),
				"temperature": 22,
				"condition":   "sunny",
				"humidity":    45,
			}, nil
		},
	})

	r.Register("search_web", Mock{
		MinLatencyMS: 500, MaxLatencyMS: 1500,
		Handler: func(args map[string]any) (map[string]any, error) {
			return map[string]any{
				"query": stringArg(args, "query", ""),
				"results": []map[string]any{
					{"title": "Result 1", "snippet": "Some information..."},
					{"title": "Result 2", "snippet": "More information..."},
				},
			}, nil
		},
	})

	r.Register("send_email", Mock{
		MinLatencyMS: 200, MaxLatencyMS: 600, FailureRate: 0.05,
		Handler: func(args map[string]any) (map[string]any, error) {
			return map[string]any{
				"status":  "sent",
				"to":      stringArg(args, "to", ""),
				"subject": stringArg(args, "subject", ""),
			}, nil
		},
	})

	r.Register("set_reminder", Mock{
		MinLatencyMS: 50, MaxLatencyMS: 200,
		Handler: func(args map[string]any) (map[string]any, error) {
			return map[string]any{
				"reminder_id": "REM001",
				"time":        stringArg(args, "time", ""),
				"message":     stringArg(args, "message", ""),
				"status":      "set",
			}, nil
		},
	})

	r.Register("get_calendar", Mock{
		MinLatencyMS: 100, MaxLatencyMS: 400,
		Handler: func(args map[string]any) (map[string]any, error) {
			return map[string]any{
				"date": stringArg(args, "date", "today"),
				"events": []map[string]any{
					{"time": "09:00", "title": "Team standup"},
					{"time": "14:00", "title": "Project review"},
				},
			}, nil
		},
	})
}

func stringArg(args map[string]any, key, fallback string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return fallback
}

func intArg(args map[string]any, key string, fallback int) int {
	if v, ok := args[key].(int); ok {
		return v
	}
	return fallback
}
