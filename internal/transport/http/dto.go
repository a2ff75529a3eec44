package http

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"wedding-pool-service/internal/domain"
)

var validate = validator.New()

// dateLayout is the wire format for event dates; the game has no
// time-of-day semantics.
const dateLayout = "2006-01-02"

type categorySeedRequest struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	Options     []string `json:"options" validate:"required,min=1,dive,required"`
	Points      int      `json:"points" validate:"required,gt=0"`
}

func (r categorySeedRequest) toDomain() domain.CategorySeed {
	return domain.CategorySeed{
		Title:       r.Title,
		Description: r.Description,
		Options:     r.Options,
		Points:      r.Points,
	}
}

type createEventRequest struct {
	Title       string                `json:"title" validate:"required"`
	Description string                `json:"description"`
	Date        string                `json:"date" validate:"required"`
	Categories  []categorySeedRequest `json:"categories" validate:"dive"`
}

func (r *createEventRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if _, err := time.Parse(dateLayout, r.Date); err != nil {
		return fmt.Errorf("date must be formatted %s", dateLayout)
	}
	return nil
}

type joinEventRequest struct {
	AccessCode string `json:"accessCode" validate:"required"`
}

func (r *joinEventRequest) Validate() error {
	return validate.Struct(r)
}

type placeBetRequest struct {
	SelectedOption string `json:"selectedOption" validate:"required"`
}

func (r *placeBetRequest) Validate() error {
	return validate.Struct(r)
}

type categoryStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=open closed"`
}

func (r *categoryStatusRequest) Validate() error {
	return validate.Struct(r)
}

type eventStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active completed cancelled"`
}

func (r *eventStatusRequest) Validate() error {
	return validate.Struct(r)
}

type settleRequest struct {
	CorrectAnswer string `json:"correctAnswer" validate:"required"`
}

func (r *settleRequest) Validate() error {
	return validate.Struct(r)
}

type joinEventResponse struct {
	Event         domain.Event       `json:"event"`
	Participant   domain.Participant `json:"participant"`
	AlreadyJoined bool               `json:"alreadyJoined"`
}

type errorResponse struct {
	Error string `json:"error"`
}
