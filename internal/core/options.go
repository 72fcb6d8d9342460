package core

import "kittycore/pkg/domain"

// Option configures a Service.
type Option func(*Service)

// WithLogger overrides the service logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the clock used for audit timestamps and durations.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithMetricsRecorder installs a metrics recorder.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer installs a tracer.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithAuditRecorder installs an audit recorder.
func WithAuditRecorder(recorder AuditRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.audit = recorder
		}
	}
}

// WithCurrencyLedger sets the ledger debited by purchases.
func WithCurrencyLedger(ledger domain.CurrencyLedger) Option {
	return func(s *Service) {
		s.ledger = ledger
	}
}

// WithRandomness overrides the randomness used for genomes and breeding selectors.
func WithRandomness(r Randomness) Option {
	return func(s *Service) {
		if r != nil {
			s.random = r
		}
	}
}

// WithRandomnessSource derives per-call randomness from a block seed source.
func WithRandomnessSource(source domain.RandomnessSource) Option {
	return func(s *Service) {
		if source != nil {
			s.random = NewSeededRandomness(source)
		}
	}
}

// WithEventSink forwards committed events to sink.
func WithEventSink(sink EventSink) Option {
	return func(s *Service) {
		if sink != nil {
			s.sinks = append(s.sinks, sink)
		}
	}
}
