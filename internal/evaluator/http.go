package evaluator

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/diegojrodriguess/c317-backend/internal/config"
)

const evaluatePath = "/avaliar"

type httpEvaluator struct {
	endpoint string
	provider string
	timeout  time.Duration
	client   *http.Client
	log      *slog.Logger
	clock    func() time.Time
}

// NewHTTPEvaluator posts audio to the remote scoring endpoint and
// normalizes its response.
func NewHTTPEvaluator(cfg config.EvaluatorConfig, log *slog.Logger) Evaluator {
	provider := cfg.DefaultProvider
	if provider == "" {
		provider = "gemini"
	}
	return &httpEvaluator{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		provider: provider,
		timeout:  time.Duration(cfg.TimeoutMS) * time.Millisecond,
		client:   http.DefaultClient,
		log:      log.With(slog.String("component", "evaluator.http")),
		clock:    time.Now,
	}
}

func (e *httpEvaluator) Evaluate(ctx context.Context, filePath string, opts Options) (Result, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return Result{}, &BackendError{Backend: "http", Status: StatusNone, Detail: err.Error(), cause: err}
	}
	defer file.Close()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	body, contentType := e.encodeForm(file, filepath.Base(filePath), opts)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+evaluatePath, body)
	if err != nil {
		return Result{}, &BackendError{Backend: "http", Status: StatusNone, Detail: err.Error(), cause: err}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := e.client.Do(req)
	if err != nil {
		return Result{}, &BackendError{Backend: "http", Status: StatusNone, Detail: err.Error(), cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return Result{}, &BackendError{
			Backend: "http",
			Status:  resp.StatusCode,
			Detail:  strings.TrimSpace(string(detail)),
		}
	}

	// A 2xx body that fails to decode is treated as an empty payload; the
	// normalizer then fills every field with its documented default.
	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		e.log.Warn("undecodable evaluator response, using defaults", slog.String("error", err.Error()))
		data = map[string]any{}
	}
	return normalize(data, true, e.clock().UTC()), nil
}

// encodeForm streams the multipart body so large uploads never sit in memory.
func (e *httpEvaluator) encodeForm(file *os.File, filename string, opts Options) (io.Reader, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := func() error {
			part, err := mw.CreateFormFile("audio", filename)
			if err != nil {
				return err
			}
			if _, err := io.Copy(part, file); err != nil {
				return err
			}
			if opts.UserID != "" {
				if err := mw.WriteField("user_id", opts.UserID); err != nil {
					return err
				}
			}
			if opts.TargetWord != "" {
				if err := mw.WriteField("target_word", opts.TargetWord); err != nil {
					return err
				}
			}
			provider := opts.Provider
			if provider == "" {
				provider = e.provider
			}
			if err := mw.WriteField("provider", provider); err != nil {
				return err
			}
			if err := mw.WriteField("ai_scoring", "true"); err != nil {
				return err
			}
			if err := mw.WriteField("scoring_provider", "gemini"); err != nil {
				return err
			}
			return mw.WriteField("language", "português")
		}()
		if cerr := mw.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
	}()

	return pr, mw.FormDataContentType()
}
