package httpx

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

const (
	idempotencyHeader     = "Idempotency-Key"
	defaultIdempotencyTTL = 24 * time.Hour
)

// Idempotency защищает небезопасные POST-ы от ретраев клиента. Запрос с уже
// обработанным ключом получает сохранённый ответ вместо повторного исполнения;
// тот же ключ с другим телом отклоняется.
type Idempotency struct {
	repo   domain.IdempotencyRepository
	ttl    time.Duration
	logger *log.Entry
}

// NewIdempotency создаёт middleware; ttl <= 0 заменяется суточным значением.
func NewIdempotency(repo domain.IdempotencyRepository, ttl time.Duration, logger *log.Entry) *Idempotency {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	if logger == nil {
		logger = log.New().WithField("component", "idempotency")
	}
	return &Idempotency{repo: repo, ttl: ttl, logger: logger}
}

// Wrap оборачивает handler. Запросы без заголовка Idempotency-Key проходят
// без изменений.
func (m *Idempotency) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(idempotencyHeader)
		if key == "" || m.repo == nil {
			next.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read request body"})
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		sum := sha256.Sum256(body)
		hash := hex.EncodeToString(sum[:])

		record, err := m.repo.CreateProcessing(key, hash, time.Now().UTC().Add(m.ttl))
		switch {
		case err == nil:
			// Первый запрос с этим ключом: исполняем и сохраняем результат.
		case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
			if !record.Status.Replayable() {
				writeError(w, domain.ErrIdempotencyKeyAlreadyExists)
				return
			}
			m.replay(w, record)
			return
		default:
			writeError(w, err)
			return
		}

		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if rec.status < http.StatusMultipleChoices {
			err = m.repo.MarkDone(key, rec.body.Bytes(), rec.status)
		} else {
			err = m.repo.MarkFailed(key, rec.body.Bytes(), rec.status)
		}
		if err != nil {
			m.logger.WithError(err).WithField("idempotency_key", key).Error("failed to persist idempotency outcome")
		}
	})
}

func (m *Idempotency) replay(w http.ResponseWriter, record domain.IdempotencyRecord) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Idempotency-Replayed", "true")
	status := record.HTTPStatus
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write(record.ResponseBody)
}

// responseRecorder дублирует тело ответа для сохранения в idempotency-записи.
type responseRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	r.body.Write(p)
	return r.ResponseWriter.Write(p)
}
