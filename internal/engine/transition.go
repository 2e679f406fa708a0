package engine

import "loanops/internal/model"

// Conditions are the inputs of the transition function, derived from the
// application's timestamps, its pending jobs and its tracked documents.
type Conditions struct {
	OCRJobPending          bool
	BankingJobPending      bool
	OCRCompleted           bool
	BankingCompleted       bool
	CreditSummaryCompleted bool
	AllAccepted            bool
	AnyRejected            bool
}

// CanEvaluateDocuments gates every document-aware transition.
func (c Conditions) CanEvaluateDocuments() bool {
	return c.OCRCompleted && c.BankingCompleted
}

func (c Conditions) CanStartCreditSummary() bool {
	return c.CanEvaluateDocuments() && c.AllAccepted
}

// Next applies one step of the stage machine. Pairs with no matching rule
// return the current stage unchanged.
func Next(stage model.ProcessingStage, c Conditions) model.ProcessingStage {
	switch stage.Normalize() {
	case model.StagePending:
		switch {
		case c.OCRJobPending:
			return model.StageOCRProcessing
		case c.OCRCompleted:
			return model.StageOCRComplete
		}
		return model.StagePending

	case model.StageOCRProcessing:
		if c.OCRCompleted {
			return model.StageOCRComplete
		}
		return model.StageOCRProcessing

	case model.StageOCRComplete:
		switch {
		case c.BankingJobPending:
			return model.StageBankingProcessing
		case c.BankingCompleted:
			return model.StageBankingComplete
		}
		return model.StageOCRComplete

	case model.StageBankingProcessing:
		if c.BankingCompleted {
			return model.StageBankingComplete
		}
		return model.StageBankingProcessing

	case model.StageBankingComplete:
		switch {
		case c.CanEvaluateDocuments() && c.AnyRejected:
			return model.StageDocumentsIncomplete
		case c.CanEvaluateDocuments() && c.AllAccepted:
			return model.StageDocumentsComplete
		}
		return model.StageBankingComplete

	case model.StageDocumentsIncomplete:
		if c.CanEvaluateDocuments() && c.AllAccepted {
			return model.StageDocumentsComplete
		}
		return model.StageDocumentsIncomplete

	case model.StageDocumentsComplete:
		switch {
		case c.CanEvaluateDocuments() && c.AnyRejected:
			return model.StageDocumentsIncomplete
		case c.CanStartCreditSummary() && c.CreditSummaryCompleted:
			return model.StageCreditSummaryComplete
		case c.CanStartCreditSummary():
			return model.StageCreditSummaryProcessing
		}
		return model.StageDocumentsComplete

	case model.StageCreditSummaryProcessing:
		switch {
		case c.AnyRejected:
			return model.StageDocumentsIncomplete
		case c.CreditSummaryCompleted:
			return model.StageCreditSummaryComplete
		}
		return model.StageCreditSummaryProcessing

	case model.StageCreditSummaryComplete:
		switch {
		case c.AnyRejected:
			return model.StageDocumentsIncomplete
		case c.CreditSummaryCompleted && c.AllAccepted:
			return model.StageReadyForLender
		}
		return model.StageCreditSummaryComplete

	case model.StageReadyForLender:
		if c.AnyRejected {
			return model.StageDocumentsIncomplete
		}
		return model.StageReadyForLender
	}
	return model.StagePending
}

// Settle iterates Next until the stage stops changing. The loop is bounded
// by the number of stages.
func Settle(stage model.ProcessingStage, c Conditions) model.ProcessingStage {
	cur := stage.Normalize()
	for i := 0; i < len(model.Stages); i++ {
		next := Next(cur, c)
		if next == cur {
			return cur
		}
		cur = next
	}
	return cur
}
