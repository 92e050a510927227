package entity

// FailureKind classifies a PortfolioError.
type FailureKind string

const (
	// FailureTransport marks an entry whose chain read failed.
	FailureTransport FailureKind = "transport"
	// FailureUnpriced marks an entry that no price path could value.
	FailureUnpriced FailureKind = "unpriced"
)

// PortfolioError represents an error that occurred while resolving a single entry of a portfolio.
// It never aborts the resolution of the other entries.
type PortfolioError struct {
	WalletAddress string      `json:"walletAddress,omitempty"`
	Kind          FailureKind `json:"kind"`
	Subject       string      `json:"subject"`
	Address       string      `json:"address,omitempty"`
	Message       string      `json:"message"`
}
