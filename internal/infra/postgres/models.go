package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"wedding-pool-service/internal/domain"
)

type userRow struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        string    `bun:"id,pk"`
	Email     string    `bun:"email"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

type eventRow struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID          string    `bun:"id,pk"`
	Title       string    `bun:"title,notnull"`
	Description string    `bun:"description"`
	Date        time.Time `bun:"date,notnull"`
	CreatorID   string    `bun:"creator_id,notnull"`
	AccessCode  string    `bun:"access_code,notnull"`
	Status      string    `bun:"status,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
	UpdatedAt   time.Time `bun:"updated_at,notnull"`
}

type eventSummaryRow struct {
	eventRow
	ParticipantCount int `bun:"participant_count,scanonly"`
}

type categoryRow struct {
	bun.BaseModel `bun:"table:bet_categories,alias:c"`

	ID            string    `bun:"id,pk"`
	EventID       string    `bun:"event_id,notnull"`
	Title         string    `bun:"title,notnull"`
	Description   string    `bun:"description"`
	Options       []string  `bun:"options,array"`
	Points        int       `bun:"points,notnull"`
	Status        string    `bun:"status,notnull"`
	CorrectAnswer *string   `bun:"correct_answer"`
	Seq           int64     `bun:"seq,nullzero"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}

type participantRow struct {
	bun.BaseModel `bun:"table:event_participants,alias:p"`

	EventID     string    `bun:"event_id,pk"`
	UserID      string    `bun:"user_id,pk"`
	TotalPoints int       `bun:"total_points,notnull"`
	JoinedAt    time.Time `bun:"joined_at,notnull"`
	Email       string    `bun:"email,scanonly"`
}

type betRow struct {
	bun.BaseModel `bun:"table:bets,alias:b"`

	ID             string    `bun:"id,pk"`
	UserID         string    `bun:"user_id,notnull"`
	EventID        string    `bun:"event_id,notnull"`
	CategoryID     string    `bun:"category_id,notnull"`
	SelectedOption string    `bun:"selected_option,notnull"`
	PointsEarned   int       `bun:"points_earned,notnull"`
	IsCorrect      *bool     `bun:"is_correct"`
	CreatedAt      time.Time `bun:"created_at,notnull"`
	UpdatedAt      time.Time `bun:"updated_at,notnull"`
}

func (r eventRow) toDomain() domain.Event {
	return domain.Event{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Date:        r.Date,
		CreatorID:   r.CreatorID,
		AccessCode:  r.AccessCode,
		Status:      domain.EventStatus(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (r categoryRow) toDomain() domain.BetCategory {
	return domain.BetCategory{
		ID:            r.ID,
		EventID:       r.EventID,
		Title:         r.Title,
		Description:   r.Description,
		Options:       r.Options,
		Points:        r.Points,
		Status:        domain.CategoryStatus(r.Status),
		CorrectAnswer: r.CorrectAnswer,
		CreatedAt:     r.CreatedAt,
	}
}

func (r participantRow) toDomain() domain.Participant {
	return domain.Participant{
		EventID:     r.EventID,
		UserID:      r.UserID,
		Email:       r.Email,
		TotalPoints: r.TotalPoints,
		JoinedAt:    r.JoinedAt,
	}
}

func (r betRow) toDomain() domain.Bet {
	return domain.Bet{
		ID:             r.ID,
		UserID:         r.UserID,
		EventID:        r.EventID,
		CategoryID:     r.CategoryID,
		SelectedOption: r.SelectedOption,
		PointsEarned:   r.PointsEarned,
		IsCorrect:      r.IsCorrect,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func betRowFromDomain(b domain.Bet) betRow {
	return betRow{
		ID:             b.ID,
		UserID:         b.UserID,
		EventID:        b.EventID,
		CategoryID:     b.CategoryID,
		SelectedOption: b.SelectedOption,
		PointsEarned:   b.PointsEarned,
		IsCorrect:      b.IsCorrect,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
}

func categoryRowFromDomain(c domain.BetCategory) categoryRow {
	return categoryRow{
		ID:            c.ID,
		EventID:       c.EventID,
		Title:         c.Title,
		Description:   c.Description,
		Options:       c.Options,
		Points:        c.Points,
		Status:        string(c.Status),
		CorrectAnswer: c.CorrectAnswer,
		CreatedAt:     c.CreatedAt,
	}
}
