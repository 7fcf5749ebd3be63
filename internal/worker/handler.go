package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/Lllllllleong/documentworkers/internal/metrics"
	"github.com/Lllllllleong/documentworkers/internal/models"
	"github.com/Lllllllleong/documentworkers/internal/port"
)

// ErrPanic marks a processing step that panicked. It is never retried.
var ErrPanic = errors.New("processing panicked")

// State is a step of the per-message lifecycle.
type State string

const (
	StateReceived  State = "RECEIVED"
	StateValidated State = "VALIDATED"
	StateFetched   State = "FETCHED"
	StateExtracted State = "EXTRACTED"
	StateRouted    State = "ROUTED"
	StatePublished State = "PUBLISHED"
	StateAcked     State = "ACKED"
	StateNacked    State = "NACKED"
)

// Outcome is the broker decision taken for a delivery.
type Outcome string

const (
	OutcomeAcked    Outcome = "acked"
	OutcomeRejected Outcome = "rejected" // nack without requeue
	OutcomeRequeued Outcome = "requeued" // nack with requeue
)

// Request is implemented by every inbound payload.
type Request interface {
	GetDocumentID() string
	Validate() error
}

// ProcessFunc performs the worker-specific step for one valid request.
// Returning an error yields a failed response; errors classified as
// transient are requeued once instead.
type ProcessFunc[Req Request] func(ctx context.Context, req Req) (*models.ProcessingResponse, error)

// Options configures a Handler.
type Options struct {
	Worker        string
	DescribeError func(error) string
	Tracker       port.StatusTracker
	Metrics       *metrics.Metrics
}

// Handler drives one delivery at a time through
// parse → validate → process → publish → ack/nack.
//
// Policy:
//   - body that is not a JSON object, or an object that does not decode and
//     has no string document_id: nack without requeue, nothing published
//   - object that does not decode but names a document: failed response, ack
//   - invalid request: failed response, ack (dropped silently without a document id)
//   - panic in the processing step: failed response, ack
//   - process error: failed response, ack; transient errors are requeued on
//     first delivery only, so a poison message is retried at most once
//   - publish error: nack with requeue; a message is never acked before its
//     response has been published
type Handler[Req Request] struct {
	broker  port.MessageBroker
	process ProcessFunc[Req]
	opts    Options
}

func NewHandler[Req Request](broker port.MessageBroker, process ProcessFunc[Req], opts Options) *Handler[Req] {
	if opts.DescribeError == nil {
		opts.DescribeError = func(err error) string { return err.Error() }
	}
	return &Handler[Req]{broker: broker, process: process, opts: opts}
}

// Run consumes deliveries until ctx is canceled. The in-flight message is
// processed on a context detached from ctx, so a shutdown signal stops
// fetching but lets the current message finish.
func (h *Handler[Req]) Run(ctx context.Context) error {
	slog.Info("Waiting for messages.", "worker", h.opts.Worker)
	for {
		d, err := h.broker.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("Received shutdown signal, stopping.", "worker", h.opts.Worker)
				return nil
			}
			return fmt.Errorf("failed to receive message: %w", err)
		}
		h.Handle(context.WithoutCancel(ctx), d)
	}
}

// Handle processes a single delivery and always ends in an ack or a nack.
func (h *Handler[Req]) Handle(ctx context.Context, d *port.Delivery) Outcome {
	start := time.Now()
	logCtx := slog.With("worker", h.opts.Worker, "routingKey", d.RoutingKey, "deliveryTag", d.Tag, "redelivered", d.Redelivered)
	logCtx.Info("Received message.", "state", StateReceived)

	req, fallbackID, err := decode[Req](d.Body)
	if err != nil {
		if fallbackID == "" {
			logCtx.Warn("Rejecting malformed message.", "error", err)
			return h.nack(logCtx, d, false, start)
		}
		logCtx = logCtx.With("documentId", fallbackID)
		logCtx.Error("Malformed request", "error", err)
		return h.respond(ctx, logCtx, d, models.Failed(fallbackID, h.opts.Worker, h.opts.DescribeError(err)), start)
	}

	docID := req.GetDocumentID()
	logCtx = logCtx.With("documentId", docID)

	if err := req.Validate(); err != nil {
		if docID == "" {
			logCtx.Error("Dropping message that does not identify a document", "error", err)
			return h.ack(logCtx, d, start)
		}
		logCtx.Error("Invalid request", "error", err)
		return h.respond(ctx, logCtx, d, models.Failed(docID, h.opts.Worker, h.opts.DescribeError(err)), start)
	}
	logCtx.Info("Processing message.", "state", StateValidated)

	resp, err := h.runProcess(ctx, req)
	if err != nil {
		if models.IsTransient(err) && !d.Redelivered {
			logCtx.Warn("Transient failure, requeueing message.", "error", err)
			return h.nack(logCtx, d, true, start)
		}
		logCtx.Error("Failed processing document", "error", err)
		resp = models.Failed(docID, h.opts.Worker, h.opts.DescribeError(err))
	}
	if resp == nil {
		resp = models.Failed(docID, h.opts.Worker, "worker produced no response")
	}
	if resp.Worker == "" {
		resp.Worker = h.opts.Worker
	}
	return h.respond(ctx, logCtx, d, resp, start)
}

// runProcess converts a panic in the processing step into a permanent error.
func (h *Handler[Req]) runProcess(ctx context.Context, req Req) (resp *models.ProcessingResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Recovered from panic while processing message",
				"worker", h.opts.Worker,
				"documentId", req.GetDocumentID(),
				"panic", r,
				"stack", string(debug.Stack()),
			)
			resp, err = nil, fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return h.process(ctx, req)
}

func (h *Handler[Req]) respond(ctx context.Context, logCtx *slog.Logger, d *port.Delivery, resp *models.ProcessingResponse, start time.Time) Outcome {
	if h.opts.Tracker != nil {
		if err := h.opts.Tracker.Record(ctx, resp); err != nil {
			logCtx.Warn("Failed to record document status.", "error", err)
		}
	}

	body, err := json.Marshal(resp)
	if err != nil {
		logCtx.Error("Failed to encode response", "error", err)
		return h.nack(logCtx, d, true, start)
	}
	if err := h.broker.Publish(ctx, body); err != nil {
		logCtx.Error("Failed to publish response, requeueing message", "error", err)
		return h.nack(logCtx, d, true, start)
	}
	logCtx.Info("Published response.", "state", StatePublished, "status", resp.Status)
	return h.ack(logCtx, d, start)
}

func (h *Handler[Req]) ack(logCtx *slog.Logger, d *port.Delivery, start time.Time) Outcome {
	if err := h.broker.Ack(d); err != nil {
		logCtx.Error("Failed to acknowledge message", "error", err)
	} else {
		logCtx.Info("Message acknowledged.", "state", StateAcked)
	}
	h.opts.Metrics.ObserveMessage(h.opts.Worker, string(OutcomeAcked), time.Since(start))
	return OutcomeAcked
}

func (h *Handler[Req]) nack(logCtx *slog.Logger, d *port.Delivery, requeue bool, start time.Time) Outcome {
	outcome := OutcomeRejected
	if requeue {
		outcome = OutcomeRequeued
	}
	if err := h.broker.Nack(d, requeue); err != nil {
		logCtx.Error("Failed to reject message", "requeue", requeue, "error", err)
	} else {
		logCtx.Info("Message rejected.", "state", StateNacked, "requeue", requeue)
	}
	h.opts.Metrics.ObserveMessage(h.opts.Worker, string(outcome), time.Since(start))
	return outcome
}

// decode accepts only JSON objects. When the object does not fit Req but
// carries a string document_id, that id is returned with the error so the
// failure can still be reported for the document.
func decode[Req Request](body []byte) (Req, string, error) {
	var req Req
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return req, "", fmt.Errorf("message is not a JSON object: %w", err)
	}
	if fields == nil {
		return req, "", errors.New("message is not a JSON object")
	}
	if err := json.Unmarshal(body, &req); err != nil {
		var docID string
		if raw, ok := fields["document_id"]; ok {
			_ = json.Unmarshal(raw, &docID)
		}
		return req, docID, fmt.Errorf("%w: failed to decode message: %w", models.ErrInvalidRequest, err)
	}
	return req, "", nil
}
