package shared

// Capability is an atomic permission carried by a caller.
type Capability string

// Receivables capabilities declared for the collections engine.
const (
	CapReceivablesView Capability = "receivables.view"
	CapWriteOff        Capability = "receivables.write_off"
	CapCreditBlock     Capability = "credit.block"
	CapCreditScan      Capability = "credit.scan"
)

// ReceivablesScopes lists all capabilities related to receivables.
func ReceivablesScopes() []Capability {
	return []Capability{
		CapReceivablesView,
		CapWriteOff,
		CapCreditBlock,
		CapCreditScan,
	}
}
