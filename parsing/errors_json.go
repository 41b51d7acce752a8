package parsing

import (
	"github.com/Energinet-DataHub/geh-message-archive/core"
	json "github.com/goccy/go-json"
)

// jsonErrorEnvelope is the known error-response shape:
// {"error":{"code","message"}} with an optional "details" array that
// supersedes the outer pair when present.
type jsonErrorEnvelope struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details []core.ErrorEntry `json:"details"`
	} `json:"error"`
}

// parseErrorJSONOverlay extracts code/message pairs from a JSON error
// envelope. Error parsers never populate transaction records.
func parseErrorJSONOverlay(rec *core.ParsedRecord, raw *core.RawRecord, _ Limits) error {
	var envelope jsonErrorEnvelope
	if err := json.Unmarshal(raw.Content, &envelope); err != nil {
		return err
	}

	if len(envelope.Error.Details) > 0 {
		rec.Errors = append(rec.Errors, envelope.Error.Details...)
		return nil
	}
	if envelope.Error.Code != "" || envelope.Error.Message != "" {
		rec.Errors = append(rec.Errors, core.ErrorEntry{
			Code:    envelope.Error.Code,
			Message: envelope.Error.Message,
		})
	}
	return nil
}
