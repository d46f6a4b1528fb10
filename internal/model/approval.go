package model

// ApprovalStatusApproved is the status the service reports for an accepted approval.
const ApprovalStatusApproved = "approved"

// ApprovalResult is the service's answer to an approval request.
type ApprovalResult struct {
	Status             string              `json:"status"`
	Message            string              `json:"message"`
	ApprovedBy         string              `json:"approved_by"`
	Notes              string              `json:"notes,omitempty"`
	TransactionDetails ApprovedTransaction `json:"transaction_details"`
}

// Approved reports whether the transaction was accepted.
func (a ApprovalResult) Approved() bool {
	return a.Status == ApprovalStatusApproved
}

// ApprovedTransaction echoes the approved transaction back.
type ApprovedTransaction struct {
	ApprovalTimestamp *Timestamp      `json:"approval_timestamp"`
	Type              TransactionType `json:"type"`
	Amount            float64         `json:"amount"`
	Step              int             `json:"step"`
}
