package domain

import "time"

// EventStatus is the administrative status of an event. There is no state
// machine between the values; the creator flips them freely.
type EventStatus string

const (
	EventActive    EventStatus = "active"
	EventCompleted EventStatus = "completed"
	EventCancelled EventStatus = "cancelled"
)

// CategoryStatus models the per-category lifecycle. open and closed toggle
// in both directions; settled is terminal.
type CategoryStatus string

const (
	CategoryOpen    CategoryStatus = "open"
	CategoryClosed  CategoryStatus = "closed"
	CategorySettled CategoryStatus = "settled"
)

// Session identifies the actor performing an operation. Authentication
// itself happens upstream; the service only needs a stable user id and an
// optional email for leaderboard display.
type Session struct {
	UserID string
	Email  string
}

// User is a minimal mirror of the upstream identity, kept so leaderboards
// can show emails.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Event is a prediction contest with its own categories and participants.
type Event struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Date        time.Time   `json:"date"`
	CreatorID   string      `json:"creatorId"`
	AccessCode  string      `json:"accessCode"`
	Status      EventStatus `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// BetCategory is one multiple-choice prediction question within an event.
// CorrectAnswer is nil until the category is settled, after which it equals
// one of Options.
type BetCategory struct {
	ID            string         `json:"id"`
	EventID       string         `json:"eventId"`
	Title         string         `json:"title"`
	Description   string         `json:"description,omitempty"`
	Options       []string       `json:"options"`
	Points        int            `json:"points"`
	Status        CategoryStatus `json:"status"`
	CorrectAnswer *string        `json:"correctAnswer,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// HasOption reports whether label is one of the category's options.
// Comparison is exact: options are server-controlled labels, so no case
// folding or trimming is applied.
func (c BetCategory) HasOption(label string) bool {
	for _, opt := range c.Options {
		if opt == label {
			return true
		}
	}
	return false
}

// Bet is one participant's selected option for one category. At most one
// bet exists per (user, category); re-placing while the category is open
// overwrites SelectedOption. IsCorrect stays nil until settlement.
type Bet struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	EventID        string    `json:"eventId"`
	CategoryID     string    `json:"categoryId"`
	SelectedOption string    `json:"selectedOption"`
	PointsEarned   int       `json:"pointsEarned"`
	IsCorrect      *bool     `json:"isCorrect,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Participant links a user to an event. TotalPoints is a running aggregate
// maintained transactionally by settlement and re-derivable from bets.
type Participant struct {
	EventID     string    `json:"eventId"`
	UserID      string    `json:"userId"`
	Email       string    `json:"email,omitempty"`
	TotalPoints int       `json:"totalPoints"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// SettlementResult summarizes a settled category.
type SettlementResult struct {
	CategoryID    string `json:"categoryId"`
	CorrectAnswer string `json:"correctAnswer"`
	BetsScored    int    `json:"betsScored"`
	Winners       int    `json:"winners"`
	PointsAwarded int    `json:"pointsAwarded"`
}

// UserTotal is the aggregated cross-event standing of one user.
type UserTotal struct {
	UserID             string `json:"userId"`
	Email              string `json:"email,omitempty"`
	TotalPoints        int    `json:"totalPoints"`
	EventsParticipated int    `json:"eventsParticipated"`
}

// LeaderboardEntry is one ranked row. Rank is 1-based and strictly
// positional; ties are not collapsed into shared ranks.
type LeaderboardEntry struct {
	Rank               int    `json:"rank"`
	UserID             string `json:"userId"`
	Email              string `json:"email,omitempty"`
	TotalPoints        int    `json:"totalPoints"`
	EventsParticipated int    `json:"eventsParticipated"`
	IsSelf             bool   `json:"isSelf"`
}

// EventDetail bundles everything a client needs to render one event.
type EventDetail struct {
	Event        Event         `json:"event"`
	Categories   []BetCategory `json:"categories"`
	Participants []Participant `json:"participants"`
	MyBets       []Bet         `json:"myBets"`
}

// EventSummary is a list row with derived fields.
type EventSummary struct {
	Event            Event `json:"event"`
	ParticipantCount int   `json:"participantCount"`
	IsCreator        bool  `json:"isCreator"`
}

// EventStats are the counters shown on an event dashboard.
type EventStats struct {
	ParticipantCount  int `json:"participantCount"`
	BetCount          int `json:"betCount"`
	OpenCategories    int `json:"openCategories"`
	SettledCategories int `json:"settledCategories"`
	TotalCategories   int `json:"totalCategories"`
}

// CategorySeed describes a category to create alongside a new event.
type CategorySeed struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Options     []string `json:"options"`
	Points      int      `json:"points"`
}
