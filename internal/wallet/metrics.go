package wallet

// MetricsRecorder receives transaction lifecycle counter events. Recording is
// fire-and-forget: implementations must never block and a failure to record
// must never fail the business operation.
type MetricsRecorder interface {
	DepositInitiated()
	WithdrawInitiated()
	TransactionApproved()
	TransactionPending()
}

// NoopMetrics discards all events. Used in tests and when metrics are disabled.
type NoopMetrics struct{}

func (NoopMetrics) DepositInitiated()    {}
func (NoopMetrics) WithdrawInitiated()   {}
func (NoopMetrics) TransactionApproved() {}
func (NoopMetrics) TransactionPending()  {}
