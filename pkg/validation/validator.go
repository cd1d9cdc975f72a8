// Package validation validates graph query parameters before they reach the
// engine.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// Validation bounds
	MaxDepth       = 5
	MaxWindowHours = 24 * 30

	idPattern = regexp.MustCompile(`^[a-zA-Z0-9_.:-]+$`)
)

func init() {
	validate = validator.New()
}

// GraphRequest represents a graph expansion request.
type GraphRequest struct {
	AlertID string `validate:"required,min=1,max=128"`
	Depth   int    `validate:"required,min=1"`
}

// CorrelateRequest represents a correlation request.
type CorrelateRequest struct {
	TimeWindowHours int `json:"time_window_hours" validate:"required,min=1"`
}

// ExpandNodeRequest represents an interactive expand-node request.
type ExpandNodeRequest struct {
	NodeID    string `json:"node_id" validate:"required,min=1,max=128"`
	SessionID string `json:"session_id" validate:"omitempty,uuid4"`
}

// LateralMovementRequest represents a lateral-movement query.
type LateralMovementRequest struct {
	OrgKey string `validate:"required,min=1,max=128"`
	Hours  int    `validate:"required,min=1"`
}

// ValidateGraphRequest validates a graph expansion request.
func ValidateGraphRequest(req *GraphRequest) error {
	if req == nil {
		return errors.New("graph request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	if req.Depth > MaxDepth {
		return fmt.Errorf("Depth: must be at most %d, got %d", MaxDepth, req.Depth)
	}
	if !idPattern.MatchString(req.AlertID) {
		return errors.New("AlertID: contains invalid characters")
	}
	return nil
}

// ValidateCorrelateRequest validates a correlation request.
func ValidateCorrelateRequest(req *CorrelateRequest) error {
	if req == nil {
		return errors.New("correlate request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	if req.TimeWindowHours > MaxWindowHours {
		return fmt.Errorf("TimeWindowHours: must be at most %d, got %d", MaxWindowHours, req.TimeWindowHours)
	}
	return nil
}

// ValidateExpandNodeRequest validates an interactive expand-node request.
func ValidateExpandNodeRequest(req *ExpandNodeRequest) error {
	if req == nil {
		return errors.New("expand request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	if !idPattern.MatchString(req.NodeID) {
		return errors.New("NodeID: contains invalid characters")
	}
	return nil
}

// ValidateLateralMovementRequest validates a lateral-movement query.
func ValidateLateralMovementRequest(req *LateralMovementRequest) error {
	if req == nil {
		return errors.New("lateral movement request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	if req.Hours > MaxWindowHours {
		return fmt.Errorf("Hours: must be at most %d, got %d", MaxWindowHours, req.Hours)
	}
	if !idPattern.MatchString(req.OrgKey) {
		return errors.New("OrgKey: contains invalid characters")
	}
	return nil
}

// formatValidationError converts validator errors into readable messages.
func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s: is required", fe.Field()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s: must be at least %s", fe.Field(), fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s: must be at most %s", fe.Field(), fe.Param()))
		case "uuid4":
			msgs = append(msgs, fmt.Sprintf("%s: must be a valid session id", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s: failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
