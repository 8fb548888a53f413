package match

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// MatchUpdate is a partial update to a MatchConfig. Nil fields are left
// untouched by the merge. Team1/Team2 replace the whole team object when set:
// callers changing any one team field must send the complete team sub-object.
type MatchUpdate struct {
	Layout     *Layout     `json:"layout,omitempty"`
	FontFamily *string     `json:"fontFamily,omitempty"`
	FontSize   *int        `json:"fontSize,omitempty"`
	Team1      *TeamConfig `json:"team1,omitempty"`
	Team2      *TeamConfig `json:"team2,omitempty"`
}

// FieldError describes a single rejected field in an update payload.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is the all-or-nothing rejection of an update payload.
type ValidationErrors []FieldError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Error()
	}
	return "invalid match update: " + strings.Join(msgs, "; ")
}

// DecodeMatchUpdate parses a raw JSON partial update. Unknown fields reject
// the payload as a whole; no per-field salvage.
func DecodeMatchUpdate(data []byte) (MatchUpdate, error) {
	var upd MatchUpdate
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&upd); err != nil {
		return MatchUpdate{}, ValidationErrors{{Field: "updates", Message: err.Error()}}
	}
	if err := upd.Validate(); err != nil {
		return MatchUpdate{}, err
	}
	return upd, nil
}

// Validate checks every present field against the schema. Negative scores are
// deliberately not rejected here; the merge clamps them to zero.
func (u MatchUpdate) Validate() error {
	var errs ValidationErrors
	if u.Layout != nil && !u.Layout.Valid() {
		errs = append(errs, FieldError{
			Field:   "layout",
			Message: fmt.Sprintf("unknown layout %q", *u.Layout),
		})
	}
	if u.FontSize != nil && (*u.FontSize < MinFontSize || *u.FontSize > MaxFontSize) {
		errs = append(errs, FieldError{
			Field:   "fontSize",
			Message: fmt.Sprintf("must be between %d and %d, got %d", MinFontSize, MaxFontSize, *u.FontSize),
		})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// apply shallow-merges the update onto cfg: top-level fields only, with a
// present team object replacing the stored one wholesale. Scores clamp at zero.
func (u MatchUpdate) apply(cfg MatchConfig) MatchConfig {
	if u.Layout != nil {
		cfg.Layout = *u.Layout
	}
	if u.FontFamily != nil {
		cfg.FontFamily = *u.FontFamily
	}
	if u.FontSize != nil {
		cfg.FontSize = *u.FontSize
	}
	if u.Team1 != nil {
		cfg.Team1 = clampScores(*u.Team1)
	}
	if u.Team2 != nil {
		cfg.Team2 = clampScores(*u.Team2)
	}
	return cfg
}

func clampScores(t TeamConfig) TeamConfig {
	if t.SetScore < 0 {
		t.SetScore = 0
	}
	if t.MatchScore < 0 {
		t.MatchScore = 0
	}
	return t
}
