package estimator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go"
)

// Kind selects how a remote service's response payload is interpreted.
type Kind int

const (
	// KindPolarity is a rule-based scorer returning a polarity scalar.
	KindPolarity Kind = iota
	// KindLabels is a classifier returning a label distribution.
	KindLabels
	// KindEmotions is a multi-label emotion classifier.
	KindEmotions
)

// Remote calls an external inference service over HTTP. Each service is
// independently reachable and independently failable; a failure or timeout
// here is an abstention for this estimator, decided by the caller.
type Remote struct {
	id      string
	version string
	kind    Kind
	url     string
	client  *http.Client
	retries uint
}

// NewRemote builds a remote estimator. timeout bounds each HTTP call so a
// slow service cannot stall a scoring worker.
func NewRemote(id, version string, kind Kind, url string, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Remote{
		id:      id,
		version: version,
		kind:    kind,
		url:     url,
		client:  &http.Client{Timeout: timeout},
		retries: 3,
	}
}

func (r *Remote) ID() string      { return r.id }
func (r *Remote) Version() string { return r.version }

type scoreRequest struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

type scoreResponse struct {
	Polarity   *float64           `json:"polarity,omitempty"`
	Confidence float64            `json:"confidence,omitempty"`
	Labels     []labelScore       `json:"labels,omitempty"`
	Scores     map[string]float64 `json:"scores,omitempty"`
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("inference service returned status %d", e.code)
}

// Score sends the lyric text to the inference service and returns its raw
// payload. Transient server errors are retried; running out of attempts
// surfaces the last error to the caller.
func (r *Remote) Score(ctx context.Context, in Input) (Raw, error) {
	if in.LyricText == "" {
		// Text estimators have nothing to say about instrumental tracks.
		return nil, fmt.Errorf("%s: no lyric text for track %s", r.id, in.TrackID)
	}

	body, err := json.Marshal(scoreRequest{Text: in.LyricText, Language: in.Language})
	if err != nil {
		return nil, fmt.Errorf("%s: encoding request: %w", r.id, err)
	}

	var parsed scoreResponse
	err = retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := r.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return &statusError{code: resp.StatusCode}
			}
			return json.NewDecoder(resp.Body).Decode(&parsed)
		},
		retry.Attempts(r.retries),
		retry.Context(ctx),
		retry.RetryIf(func(err error) bool {
			if serr, ok := err.(*statusError); ok {
				return serr.code/100 == 5 || serr.code == http.StatusTooManyRequests
			}
			return ctx.Err() == nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: scoring track %s: %w", r.id, in.TrackID, err)
	}

	switch r.kind {
	case KindPolarity:
		if parsed.Polarity == nil {
			return nil, fmt.Errorf("%s: response missing polarity", r.id)
		}
		return PolarityRaw{Polarity: *parsed.Polarity, Confidence: parsed.Confidence}, nil
	case KindLabels:
		labels := make([]LabelProb, 0, len(parsed.Labels))
		for _, l := range parsed.Labels {
			labels = append(labels, LabelProb{Label: l.Label, Prob: l.Score})
		}
		return LabelRaw{Labels: labels}, nil
	case KindEmotions:
		return EmotionRaw{Scores: parsed.Scores, Confidence: parsed.Confidence}, nil
	default:
		return nil, fmt.Errorf("%s: unknown estimator kind %d", r.id, r.kind)
	}
}
