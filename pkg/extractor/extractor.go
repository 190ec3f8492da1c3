// Package extractor reads maintenance notification text into a provisional task
package extractor

import (
	"strings"
	"time"

	"github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/models"
)

// Extractor applies the labeled-field matchers to a notification body
type Extractor struct {
	location *time.Location
}

// New creates a new Extractor. Dates without an explicit zone are read in location.
func New(location *time.Location) *Extractor {
	if location == nil {
		location = DefaultLocation
	}
	return &Extractor{location: location}
}

// Location returns the zone assumed for dates without an explicit offset
func (e *Extractor) Location() *time.Location {
	return e.location
}

// Extract parses raw text into a ProvisionalTask. A missing required field or an
// unreadable date returns an *errors.ExtractionError naming the field.
func (e *Extractor) Extract(raw string) (*models.ProvisionalTask, error) {
	values := e.collect(raw)

	task := &models.ProvisionalTask{
		CarrierName:    optional(values[FieldCarrier]),
		ExternalID:     optional(values[FieldExternalID]),
		ImpactDuration: optional(values[FieldImpactDuration]),
		Description:    optional(values[FieldDescription]),
	}

	start, err := e.requiredDate(values, FieldStartTime)
	if err != nil {
		return nil, err
	}
	task.StartTime = start

	end, err := e.requiredDate(values, FieldEndTime)
	if err != nil {
		return nil, err
	}
	task.EndTime = end

	task.TaskType = values[FieldTaskType]
	if task.TaskType == "" {
		return nil, errors.NewMissingFieldError(FieldTaskType)
	}

	task.ServiceTokens = SplitServiceTokens(values[FieldServices])
	if len(task.ServiceTokens) == 0 {
		return nil, errors.NewMissingFieldError(FieldServices)
	}

	return task, nil
}

func (e *Extractor) requiredDate(values map[string]string, field string) (time.Time, error) {
	value := values[field]
	if value == "" {
		return time.Time{}, errors.NewMissingFieldError(field)
	}
	t, err := ParseDate(value, e.location)
	if err != nil {
		return time.Time{}, errors.NewUnparseableDateError(field, value)
	}
	return t, nil
}

// collect walks the lines once. The first labeled line for a field wins; continued
// fields absorb the following unlabeled lines up to a blank line.
func (e *Extractor) collect(raw string) map[string]string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	lines := strings.Split(raw, "\n")

	values := make(map[string]string)
	for i := 0; i < len(lines); i++ {
		matcher, value, ok := matchLine(lines[i])
		if !ok {
			continue
		}

		parts := []string{}
		if value != "" {
			parts = append(parts, value)
		}
		if matcher.continued {
			for i+1 < len(lines) {
				next := strings.TrimSpace(lines[i+1])
				if next == "" {
					break
				}
				if _, _, labeled := matchLine(next); labeled {
					break
				}
				parts = append(parts, strings.TrimSpace(strings.TrimLeft(next, "*•-")))
				i++
			}
		}

		joined := strings.Join(parts, matcher.separator)
		if _, seen := values[matcher.field]; seen || joined == "" {
			continue
		}
		values[matcher.field] = joined
	}

	return values
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
