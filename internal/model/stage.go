package model

// ProcessingStage summarizes how far an application has progressed through
// automated processing.
type ProcessingStage string

const (
	StagePending                 ProcessingStage = "pending"
	StageOCRProcessing           ProcessingStage = "ocr_processing"
	StageOCRComplete             ProcessingStage = "ocr_complete"
	StageBankingProcessing       ProcessingStage = "banking_processing"
	StageBankingComplete         ProcessingStage = "banking_complete"
	StageDocumentsIncomplete     ProcessingStage = "documents_incomplete"
	StageDocumentsComplete       ProcessingStage = "documents_complete"
	StageCreditSummaryProcessing ProcessingStage = "credit_summary_processing"
	StageCreditSummaryComplete   ProcessingStage = "credit_summary_complete"
	StageReadyForLender          ProcessingStage = "ready_for_lender"
)

// Stages lists every stage in pipeline order.
var Stages = []ProcessingStage{
	StagePending,
	StageOCRProcessing,
	StageOCRComplete,
	StageBankingProcessing,
	StageBankingComplete,
	StageDocumentsIncomplete,
	StageDocumentsComplete,
	StageCreditSummaryProcessing,
	StageCreditSummaryComplete,
	StageReadyForLender,
}

// Valid reports whether s is one of the ten known stages.
func (s ProcessingStage) Valid() bool {
	for _, st := range Stages {
		if st == s {
			return true
		}
	}
	return false
}

// Normalize maps empty or unknown values to pending.
func (s ProcessingStage) Normalize() ProcessingStage {
	if s.Valid() {
		return s
	}
	return StagePending
}

// Order is the position of s in the pipeline, or -1 for unknown stages.
func (s ProcessingStage) Order() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

// StageFlags are the completion flags a stage implies.
type StageFlags struct {
	OCRCompleted           bool
	BankingCompleted       bool
	DocumentsCompleted     bool
	CreditSummaryCompleted bool
}

// Flags returns the completion flags implied by the stage. The flags are
// non-decreasing along the pipeline order.
func (s ProcessingStage) Flags() StageFlags {
	o := s.Normalize().Order()
	return StageFlags{
		OCRCompleted:           o >= StageOCRComplete.Order(),
		BankingCompleted:       o >= StageBankingComplete.Order(),
		DocumentsCompleted:     o >= StageDocumentsComplete.Order(),
		CreditSummaryCompleted: o >= StageCreditSummaryComplete.Order(),
	}
}
