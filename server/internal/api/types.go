package api

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	Rooms       int    `json:"rooms"`
	Uptime      string `json:"uptime"`
}

// RoomResponse describes one active room.
type RoomResponse struct {
	Room    string `json:"room"`
	Members int    `json:"members"`
}

// acceptedResponse is returned for accepted publishes.
type acceptedResponse struct {
	Status string `json:"status"`
}

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Error string `json:"error"`
}
