package dto

import (
	"encoding/json"

	"github.com/spec-kit/blood-drive-checkin/internal/domain"
	"github.com/spec-kit/blood-drive-checkin/internal/service"
)

// BoardEntryResponse is one line of the kiosk queue.
type BoardEntryResponse struct {
	RegistrationID string  `json:"registration_id"`
	FullName       string  `json:"full_name"`
	Status         string  `json:"status"`
	QueueNumber    *int    `json:"queue_number"`
	CheckInTime    *string `json:"check_in_time"`
}

// BoardResponse is the kiosk payload, served over HTTP and pushed over websocket.
type BoardResponse struct {
	Type        string               `json:"type"`
	Campaign    CampaignResponse     `json:"campaign"`
	Stats       service.BoardStats   `json:"stats"`
	NextUp      []BoardEntryResponse `json:"next_up"`
	CheckInURL  string               `json:"check_in_url"`
	GeneratedAt string               `json:"generated_at"`
}

// NewBoardResponse maps a snapshot.
func NewBoardResponse(s *service.BoardSnapshot) BoardResponse {
	entries := make([]BoardEntryResponse, 0, len(s.Board.NextUp))
	for _, e := range s.Board.NextUp {
		entry := BoardEntryResponse{
			RegistrationID: e.RegistrationID,
			FullName:       e.FullName,
			Status:         string(e.Status),
			QueueNumber:    e.QueueNumber,
		}
		if e.CheckInTime != nil {
			ts := domain.FormatTimestamp(*e.CheckInTime)
			entry.CheckInTime = &ts
		}
		entries = append(entries, entry)
	}
	return BoardResponse{
		Type:        "board_update",
		Campaign:    *NewCampaignResponse(s.Campaign),
		Stats:       s.Board.Stats,
		NextUp:      entries,
		CheckInURL:  s.CheckInURL,
		GeneratedAt: domain.FormatTimestamp(s.GeneratedAt),
	}
}

// EncodeBoard renders a snapshot as the websocket message body.
func EncodeBoard(s *service.BoardSnapshot) ([]byte, error) {
	return json.Marshal(NewBoardResponse(s))
}
