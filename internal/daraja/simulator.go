package daraja

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

type SimulatorConfig struct {
	ConsumerKey    string
	ConsumerSecret string
	MaxWorkers     int
	JobQueueSize   int
	MinDelay       time.Duration
	MaxDelay       time.Duration
	SuccessRate    float64
}

type simulatedPush struct {
	MerchantRequestID string
	CheckoutRequestID string
	Amount            int64
	PhoneNumber       string
	CallbackURL       string
}

type simulatorWorker struct {
	id         int
	workerPool chan chan simulatedPush
	jobChannel chan simulatedPush
	logger     *slog.Logger
}

func (w *simulatorWorker) start(ctx context.Context, wg *sync.WaitGroup, process func(context.Context, simulatedPush)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case w.workerPool <- w.jobChannel:
			case <-ctx.Done():
				return
			}

			select {
			case job := <-w.jobChannel:
				w.logger.Debug("simulator worker resolving push", "worker_id", w.id, "checkout_request_id", job.CheckoutRequestID)
				process(ctx, job)
			case <-ctx.Done():
				w.logger.Debug("simulator worker shutting down", "worker_id", w.id)
				return
			}
		}
	}()
}

// Simulator is a local stand-in for the provider. It accepts pushes, then
// resolves each one on a worker pool and POSTs the callback.
type Simulator struct {
	cfg    SimulatorConfig
	logger *slog.Logger
	hc     *http.Client
	router chi.Router

	mu      sync.Mutex
	tokens  map[string]struct{}
	results map[string]*Callback
	pending map[string]struct{}
	rng     *rand.Rand

	jobQueue   chan simulatedPush
	workerPool chan chan simulatedPush
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

func NewSimulator(cfg SimulatorConfig, logger *slog.Logger) *Simulator {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 5
	}
	if cfg.JobQueueSize <= 0 {
		cfg.JobQueueSize = 100
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Simulator{
		cfg:        cfg,
		logger:     logger,
		hc:         &http.Client{Timeout: 10 * time.Second},
		tokens:     make(map[string]struct{}),
		results:    make(map[string]*Callback),
		pending:    make(map[string]struct{}),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		jobQueue:   make(chan simulatedPush, cfg.JobQueueSize),
		workerPool: make(chan chan simulatedPush, cfg.MaxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}

	r := chi.NewRouter()
	r.Get("/oauth/v1/generate", s.handleToken)
	r.Post(stkPushPath, s.handleSTKPush)
	r.Post(stkQueryPath, s.handleQuery)
	s.router = r

	s.startWorkerPool()
	return s
}

func (s *Simulator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Simulator) startWorkerPool() {
	s.once.Do(func() {
		for i := 0; i < s.cfg.MaxWorkers; i++ {
			worker := &simulatorWorker{
				id:         i,
				workerPool: s.workerPool,
				jobChannel: make(chan simulatedPush),
				logger:     s.logger,
			}
			worker.start(s.ctx, &s.wg, s.resolve)
		}

		s.wg.Add(1)
		go s.dispatch()

		s.logger.Info("daraja simulator worker pool started",
			"max_workers", s.cfg.MaxWorkers,
			"queue_size", cap(s.jobQueue))
	})
}

func (s *Simulator) dispatch() {
	defer s.wg.Done()

	for {
		select {
		case job := <-s.jobQueue:
			select {
			case jobChannel := <-s.workerPool:
				select {
				case jobChannel <- job:
				case <-s.ctx.Done():
					return
				}
			case <-s.ctx.Done():
				return
			}
		case <-s.ctx.Done():
			s.logger.Info("simulator dispatcher shutting down")
			return
		}
	}
}

func (s *Simulator) Shutdown() {
	s.logger.Info("shutting down daraja simulator")
	s.cancel()
	s.wg.Wait()
}

func (s *Simulator) handleToken(w http.ResponseWriter, r *http.Request) {
	if s.cfg.ConsumerKey != "" {
		expected := "Basic " + base64.StdEncoding.EncodeToString([]byte(s.cfg.ConsumerKey+":"+s.cfg.ConsumerSecret))
		if r.Header.Get("Authorization") != expected {
			writeSimulatorJSON(w, http.StatusBadRequest, errorResponse{
				RequestID:    uuid.NewString(),
				ErrorCode:    "400.008.01",
				ErrorMessage: "Invalid Authentication passed",
			})
			return
		}
	}

	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	s.mu.Lock()
	s.tokens[token] = struct{}{}
	s.mu.Unlock()

	writeSimulatorJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"expires_in":   "3599",
	})
}

func (s *Simulator) authorized(r *http.Request) bool {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[token]
	return ok
}

func (s *Simulator) handleSTKPush(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeSimulatorJSON(w, http.StatusUnauthorized, errorResponse{
			RequestID:    uuid.NewString(),
			ErrorCode:    "404.001.03",
			ErrorMessage: "Invalid Access Token",
		})
		return
	}

	var payload stkPushPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.CallBackURL == "" || payload.Amount <= 0 {
		writeSimulatorJSON(w, http.StatusBadRequest, errorResponse{
			RequestID:    uuid.NewString(),
			ErrorCode:    "400.002.02",
			ErrorMessage: "Bad Request - Invalid payload",
		})
		return
	}

	job := simulatedPush{
		MerchantRequestID: fmt.Sprintf("%d-%d-1", s.intn(90000)+10000, s.intn(900000000)+100000000),
		CheckoutRequestID: "ws_CO_" + time.Now().Format(timestampLayout) + strings.ToLower(ulid.Make().String()[16:]),
		Amount:            payload.Amount,
		PhoneNumber:       payload.PhoneNumber,
		CallbackURL:       payload.CallBackURL,
	}

	s.mu.Lock()
	s.pending[job.CheckoutRequestID] = struct{}{}
	s.mu.Unlock()

	select {
	case s.jobQueue <- job:
	default:
		s.mu.Lock()
		delete(s.pending, job.CheckoutRequestID)
		s.mu.Unlock()
		s.logger.Warn("simulator queue full, rejecting push", "queue_capacity", cap(s.jobQueue))
		writeSimulatorJSON(w, http.StatusServiceUnavailable, errorResponse{
			RequestID:    uuid.NewString(),
			ErrorCode:    "503.001.01",
			ErrorMessage: "System is busy, try again later",
		})
		return
	}

	s.logger.Info("simulator accepted stk push",
		"checkout_request_id", job.CheckoutRequestID,
		"amount", job.Amount,
		"phone_number", job.PhoneNumber)

	writeSimulatorJSON(w, http.StatusOK, STKPushResponse{
		MerchantRequestID:   job.MerchantRequestID,
		CheckoutRequestID:   job.CheckoutRequestID,
		ResponseCode:        "0",
		ResponseDescription: "Success. Request accepted for processing",
		CustomerMessage:     "Success. Request accepted for processing",
	})
}

func (s *Simulator) handleQuery(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeSimulatorJSON(w, http.StatusUnauthorized, errorResponse{
			RequestID:    uuid.NewString(),
			ErrorCode:    "404.001.03",
			ErrorMessage: "Invalid Access Token",
		})
		return
	}

	var payload stkQueryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeSimulatorJSON(w, http.StatusBadRequest, errorResponse{ErrorCode: "400.002.02", ErrorMessage: "Bad Request - Invalid payload"})
		return
	}

	s.mu.Lock()
	result, done := s.results[payload.CheckoutRequestID]
	_, waiting := s.pending[payload.CheckoutRequestID]
	s.mu.Unlock()

	switch {
	case done:
		writeSimulatorJSON(w, http.StatusOK, map[string]string{
			"ResponseCode":        "0",
			"ResponseDescription": "The service request has been accepted successsfully",
			"MerchantRequestID":   result.MerchantRequestID,
			"CheckoutRequestID":   result.CheckoutRequestID,
			"ResultCode":          fmt.Sprint(result.ResultCode),
			"ResultDesc":          result.ResultDesc,
		})
	case waiting:
		writeSimulatorJSON(w, http.StatusInternalServerError, errorResponse{
			RequestID:    uuid.NewString(),
			ErrorCode:    stillProcessingCode,
			ErrorMessage: "The transaction is being processed",
		})
	default:
		writeSimulatorJSON(w, http.StatusBadRequest, errorResponse{
			RequestID:    uuid.NewString(),
			ErrorCode:    "400.002.02",
			ErrorMessage: "Bad Request - Invalid CheckoutRequestID",
		})
	}
}

func (s *Simulator) resolve(ctx context.Context, job simulatedPush) {
	delay := s.cfg.MinDelay
	if spread := s.cfg.MaxDelay - s.cfg.MinDelay; spread > 0 {
		delay += time.Duration(s.int63n(int64(spread)))
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}

	cb := &Callback{
		MerchantRequestID: job.MerchantRequestID,
		CheckoutRequestID: job.CheckoutRequestID,
	}
	if s.float64() < s.cfg.SuccessRate {
		cb.ResultCode = ResultCodeSuccess
		cb.ResultDesc = "The service request is processed successfully."
		cb.Metadata = []MetadataItem{
			{Name: "Amount", Value: job.Amount},
			{Name: "MpesaReceiptNumber", Value: ulid.Make().String()[:10]},
			{Name: "TransactionDate", Value: time.Now().Format(timestampLayout)},
			{Name: "PhoneNumber", Value: job.PhoneNumber},
		}
	} else {
		cb.ResultCode = ResultCodeCancelledByUser
		cb.ResultDesc = "Request cancelled by user"
	}

	s.mu.Lock()
	delete(s.pending, job.CheckoutRequestID)
	s.results[job.CheckoutRequestID] = cb
	s.mu.Unlock()

	if err := s.deliver(ctx, job.CallbackURL, cb); err != nil {
		s.logger.Error("simulator callback delivery failed",
			"checkout_request_id", job.CheckoutRequestID,
			"callback_url", job.CallbackURL,
			"error", err)
		return
	}
	s.logger.Info("simulator callback delivered",
		"checkout_request_id", job.CheckoutRequestID,
		"result_code", cb.ResultCode)
}

func (s *Simulator) deliver(ctx context.Context, url string, cb *Callback) error {
	body, err := cb.Envelope()
	if err != nil {
		return fmt.Errorf("encode callback: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.hc.Do(req)
	if err != nil {
		return fmt.Errorf("send callback: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("callback endpoint answered %d", resp.StatusCode)
	}
	return nil
}

func (s *Simulator) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

func (s *Simulator) int63n(n int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Int63n(n)
}

func (s *Simulator) float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func writeSimulatorJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
