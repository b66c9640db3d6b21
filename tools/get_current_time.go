package tools

import (
	"context"
	"fmt"
	"time"
)

// GetCurrentTimeInput represents the input parameters for the get_current_time tool.
type GetCurrentTimeInput struct {
	Format   string `json:"format,omitempty" jsonschema_description:"Time format string according to Go's time formatting conventions, default format is : 2006-01-02T15:04:05Z07:00"`
	Location string `json:"location,omitempty" jsonschema_description:"IANA time zone identifier (e.g., 'Asia/Colombo', 'America/New_York'), default UTC"`
}

type GetCurrentTimeOutput struct {
	CurrentTime string `json:"currentTime"`
	Location    string `json:"location"`
}

// GetCurrentTime formats now in the requested location.
func GetCurrentTime(_ context.Context, input GetCurrentTimeInput, now time.Time) (GetCurrentTimeOutput, error) {
	format := input.Format
	if format == "" {
		format = time.RFC3339
	}

	loc := time.UTC
	if input.Location != "" {
		var err error
		loc, err = time.LoadLocation(input.Location)
		if err != nil {
			return GetCurrentTimeOutput{}, fmt.Errorf("invalid location: %v", err)
		}
	}

	return GetCurrentTimeOutput{
		CurrentTime: now.In(loc).Format(format),
		Location:    loc.String(),
	}, nil
}
