package service

import (
	"context"
	"errors"
	"math"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/blood-drive-checkin/internal/domain"
	"github.com/spec-kit/blood-drive-checkin/internal/repository"
	apperrors "github.com/spec-kit/blood-drive-checkin/pkg/util/errorutil"
)

// DefaultBoardSize is the number of upcoming donors shown when none is configured.
const DefaultBoardSize = 10

// BoardStats summarizes a campaign's registrations.
type BoardStats struct {
	Total     int `json:"total"`
	CheckedIn int `json:"checked_in"`
	Completed int `json:"completed"`
	Waiting   int `json:"waiting"`
}

// BoardEntry is one line of the queue display.
type BoardEntry struct {
	RegistrationID string
	FullName       string
	Status         domain.RegistrationStatus
	QueueNumber    *int
	CheckInTime    *time.Time
	RegisteredAt   time.Time
}

// Board is the derived queue display of a campaign.
type Board struct {
	Stats  BoardStats
	NextUp []BoardEntry
}

// BuildBoard derives the queue display from the campaign's registrations. Checked-in donors come first
// in queue number order, followed by Booked donors in booking order. Other statuses are counted but
// never listed.
func BuildBoard(regs []domain.Registration, limit int) Board {
	if limit <= 0 {
		limit = DefaultBoardSize
	}
	board := Board{Stats: BoardStats{Total: len(regs)}}
	var checkedIn, booked []domain.Registration
	for _, reg := range regs {
		switch reg.Status {
		case domain.RegistrationStatusCheckedIn:
			board.Stats.CheckedIn++
			checkedIn = append(checkedIn, reg)
		case domain.RegistrationStatusCompleted:
			board.Stats.Completed++
		case domain.RegistrationStatusBooked:
			booked = append(booked, reg)
		}
	}
	board.Stats.Waiting = len(checkedIn) + len(booked)

	sort.SliceStable(checkedIn, func(i, j int) bool {
		return queueNumberOf(checkedIn[i]) < queueNumberOf(checkedIn[j])
	})
	sort.SliceStable(booked, func(i, j int) bool {
		return booked[i].CreatedAt.Before(booked[j].CreatedAt)
	})

	board.NextUp = make([]BoardEntry, 0, limit)
	for _, reg := range append(checkedIn, booked...) {
		if len(board.NextUp) == limit {
			break
		}
		board.NextUp = append(board.NextUp, BoardEntry{
			RegistrationID: reg.ID,
			FullName:       reg.FullName,
			Status:         reg.Status,
			QueueNumber:    reg.QueueNumber,
			CheckInTime:    reg.CheckInTime,
			RegisteredAt:   reg.CreatedAt,
		})
	}
	return board
}

func queueNumberOf(reg domain.Registration) int {
	if reg.QueueNumber == nil {
		return math.MaxInt
	}
	return *reg.QueueNumber
}

// CheckInLink is the address donors scan to reach the campaign's check-in page.
func CheckInLink(baseURL, campaignID string) string {
	return strings.TrimRight(baseURL, "/") + "/checkin?campaign=" + url.QueryEscape(campaignID)
}

// BoardSnapshot is the kiosk payload for one campaign.
type BoardSnapshot struct {
	Campaign    *domain.Campaign
	Board       Board
	CheckInURL  string
	GeneratedAt time.Time
}

// BoardService assembles kiosk snapshots.
type BoardService struct {
	campaigns     repository.CampaignRepository
	registrations repository.RegistrationRepository
	baseURL       string
	size          int
	now           func() time.Time
}

// BoardDependencies bundles collaborators for the kiosk board.
type BoardDependencies struct {
	CampaignRepo     repository.CampaignRepository
	RegistrationRepo repository.RegistrationRepository
	PublicBaseURL    string
	Size             int
	Clock            func() time.Time
}

// NewBoardService constructs the service.
func NewBoardService(deps BoardDependencies) *BoardService {
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &BoardService{
		campaigns:     deps.CampaignRepo,
		registrations: deps.RegistrationRepo,
		baseURL:       deps.PublicBaseURL,
		size:          deps.Size,
		now:           now,
	}
}

// Snapshot reads the campaign's registrations and derives its current board.
func (s *BoardService) Snapshot(ctx context.Context, campaignID string) (*BoardSnapshot, error) {
	campaign, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewCheckinError(apperrors.CodeCampaignNotFound, messageFor(StateCampaignNotFound, nil),
				map[string]any{"campaign_id": campaignID})
		}
		return nil, err
	}
	regs, err := s.registrations.ListByCampaign(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}
	return &BoardSnapshot{
		Campaign:    campaign,
		Board:       BuildBoard(regs, s.size),
		CheckInURL:  CheckInLink(s.baseURL, campaign.ID),
		GeneratedAt: s.now().UTC(),
	}, nil
}
