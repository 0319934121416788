package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/form/v4"
	"github.com/undeadpelmen/acbot/internal/controller"
)

type formRow struct {
	Temperature float64 `form:"temperature"`
	Score       float64 `form:"score"`
	Note        string  `form:"note"`
	Humidity    float64 `form:"humidity"`
}

// GoogleForm appends a row to a spreadsheet through a Google Form's
// formResponse endpoint. Fields maps row names (temperature, score, note,
// humidity) to the form's entry.NNN ids; unmapped names are sent as is.
type GoogleForm struct {
	client  *http.Client
	url     string
	fields  map[string]string
	encoder *form.Encoder
}

func NewGoogleForm(endpoint string, fields map[string]string, timeout time.Duration) *GoogleForm {
	return &GoogleForm{
		client:  &http.Client{Timeout: timeout},
		url:     endpoint,
		fields:  fields,
		encoder: form.NewEncoder(),
	}
}

func (g *GoogleForm) Name() string {
	return "google_form"
}

func (g *GoogleForm) Notify(ctx context.Context, r controller.Report) error {
	if !r.HasReading {
		return nil
	}

	values, err := g.encode(formRow{
		Temperature: r.Temperature,
		Score:       r.Score,
		Note:        r.Summary(),
		Humidity:    r.Humidity,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, strings.NewReader(values.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("submit form: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func (g *GoogleForm) encode(row formRow) (url.Values, error) {
	raw, err := g.encoder.Encode(row)
	if err != nil {
		return nil, fmt.Errorf("encode row: %w", err)
	}
	values := make(url.Values, len(raw))
	for name, v := range raw {
		if entry, ok := g.fields[name]; ok && entry != "" {
			name = entry
		}
		values[name] = v
	}
	return values, nil
}
