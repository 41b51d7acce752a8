package parsing

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/Energinet-DataHub/geh-message-archive/core"
	json "github.com/goccy/go-json"
)

// parseJSONOverlay extracts the CIM JSON business fields using
// forward-only token streaming. Documents can be large; nothing is
// materialized beyond the scalars being read.
func parseJSONOverlay(rec *core.ParsedRecord, raw *core.RawRecord, lim Limits) error {
	dec := json.NewDecoder(bytes.NewReader(raw.Content))

	if err := expectDelim(dec, '{'); err != nil {
		return err
	}

	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return err
		}

		switch {
		case strings.HasSuffix(key, "_MarketDocument"):
			// "confirmrequestchangeofsupplier_MarketDocument" carries
			// the document-type tag in front of the underscore.
			rec.RsmName = strings.ToLower(key[:strings.Index(key, "_")])
			if err := scanMarketDocument(dec, rec, lim); err != nil {
				return err
			}
		case strings.HasSuffix(strings.ToLower(key), "error"):
			if err := scanErrorObject(dec, rec, lim); err != nil {
				return err
			}
		default:
			if err := skipValue(dec, lim); err != nil {
				return err
			}
		}
	}

	return expectDelim(dec, '}')
}

// scanMarketDocument reads the keys of a *_MarketDocument object.
// CIM-style scalar fields are wrapped as {"value": <scalar>}; mRID and
// createdDateTime appear as bare scalars.
func scanMarketDocument(dec *json.Decoder, rec *core.ParsedRecord, lim Limits) error {
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}

	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return err
		}

		var target *string
		switch key {
		case "mRID":
			target = &rec.MessageID
		case "type":
			target = &rec.MessageType
		case "process.processType":
			target = &rec.ProcessType
		case "businessSector.type":
			target = &rec.BusinessSectorType
		case "reason.code":
			target = &rec.ReasonCode
		case "sender_MarketParticipant.mRID":
			target = &rec.SenderID
		case "sender_MarketParticipant.marketRole.type":
			target = &rec.SenderRoleType
		case "receiver_MarketParticipant.mRID":
			target = &rec.ReceiverID
		case "receiver_MarketParticipant.marketRole.type":
			target = &rec.ReceiverRoleType
		case "createdDateTime":
			value, err := readScalarOrValue(dec, lim)
			if err != nil {
				return err
			}
			if value != "" {
				rec.CreatedDate = parsePayloadTime(value)
			}
			continue
		case "MktActivityRecord", "Series":
			if err := scanTransactions(dec, key, rec, lim); err != nil {
				return err
			}
			continue
		default:
			if err := skipValue(dec, lim); err != nil {
				return err
			}
			continue
		}

		value, err := readScalarOrValue(dec, lim)
		if err != nil {
			return err
		}
		*target = value
	}

	return expectDelim(dec, '}')
}

// scanTransactions collects all transaction objects of a
// MktActivityRecord or Series array. An object contributes a record
// only when its mRID is non-empty.
func scanTransactions(dec *json.Decoder, key string, rec *core.ParsedRecord, lim Limits) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		// Scalar where an array was expected; nothing to collect.
		return nil
	}

	switch delim {
	case '[':
		for dec.More() {
			if len(rec.TransactionRecords) >= lim.MaxTransactions {
				return fmt.Errorf("%s carries more than %d transactions", key, lim.MaxTransactions)
			}
			if err := scanTransactionObject(dec, rec, lim); err != nil {
				return err
			}
		}
		return expectDelim(dec, ']')
	case '{':
		return scanTransactionFields(dec, rec, lim)
	default:
		return fmt.Errorf("unexpected delimiter %v in %s", delim, key)
	}
}

func scanTransactionObject(dec *json.Decoder, rec *core.ParsedRecord, lim Limits) error {
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	return scanTransactionFields(dec, rec, lim)
}

// scanTransactionFields reads one transaction object whose opening
// brace has already been consumed.
func scanTransactionFields(dec *json.Decoder, rec *core.ParsedRecord, lim Limits) error {
	var mrid, ref string

	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return err
		}

		switch key {
		case "mRID":
			if mrid, err = readScalarOrValue(dec, lim); err != nil {
				return err
			}
		case "originalTransactionIDReference_MktActivityRecord.mRID",
			"originalTransactionIDReference_Series.mRID":
			// Only one of the two appears per object.
			if ref, err = readScalarOrValue(dec, lim); err != nil {
				return err
			}
		default:
			if err := skipValue(dec, lim); err != nil {
				return err
			}
		}
	}

	if err := expectDelim(dec, '}'); err != nil {
		return err
	}

	if mrid != "" {
		rec.TransactionRecords = append(rec.TransactionRecords, core.TransactionRecord{
			MRID:                             mrid,
			OriginalTransactionIDReferenceID: ref,
		})
	}
	return nil
}

// scanErrorObject scans a depth-1 error object for a details array and
// appends one entry per detail element.
func scanErrorObject(dec *json.Decoder, rec *core.ParsedRecord, lim Limits) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		if delim, ok := tok.(json.Delim); ok {
			return skipOpenValue(dec, delim, lim)
		}
		return nil
	}

	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return err
		}
		if key != "details" {
			if err := skipValue(dec, lim); err != nil {
				return err
			}
			continue
		}

		tok, err := dec.Token()
		if err != nil {
			return err
		}
		delim, ok := tok.(json.Delim)
		if !ok {
			continue
		}
		if delim != '[' {
			if err := skipOpenValue(dec, delim, lim); err != nil {
				return err
			}
			continue
		}

		for dec.More() {
			entry, err := scanErrorEntry(dec, lim)
			if err != nil {
				return err
			}
			rec.Errors = append(rec.Errors, entry)
		}
		if err := expectDelim(dec, ']'); err != nil {
			return err
		}
	}

	return expectDelim(dec, '}')
}

func scanErrorEntry(dec *json.Decoder, lim Limits) (core.ErrorEntry, error) {
	var entry core.ErrorEntry

	if err := expectDelim(dec, '{'); err != nil {
		return entry, err
	}
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return entry, err
		}
		switch strings.ToLower(key) {
		case "code":
			if entry.Code, err = readScalarOrValue(dec, lim); err != nil {
				return entry, err
			}
		case "message":
			if entry.Message, err = readScalarOrValue(dec, lim); err != nil {
				return entry, err
			}
		default:
			if err := skipValue(dec, lim); err != nil {
				return entry, err
			}
		}
	}
	return entry, expectDelim(dec, '}')
}

// Token-stream helpers

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return key, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

// readScalarOrValue reads a scalar that may appear either bare or
// nested one level under a "value" key (the CIM JSON wrapping).
func readScalarOrValue(dec *json.Decoder, lim Limits) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return scalarString(tok), nil
	}

	if delim == '[' {
		return "", skipOpenValue(dec, delim, lim)
	}

	var value string
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return "", err
		}
		if key == "value" {
			inner, err := dec.Token()
			if err != nil {
				return "", err
			}
			if innerDelim, ok := inner.(json.Delim); ok {
				if err := skipOpenValue(dec, innerDelim, lim); err != nil {
					return "", err
				}
				continue
			}
			value = scalarString(inner)
			continue
		}
		if err := skipValue(dec, lim); err != nil {
			return "", err
		}
	}
	return value, expectDelim(dec, '}')
}

func scalarString(tok json.Token) string {
	switch v := tok.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// skipValue consumes one whole value, tracking bracket/brace depth
// explicitly and bounding it by lim.MaxDepth.
func skipValue(dec *json.Decoder, lim Limits) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); ok {
		return skipOpenValue(dec, delim, lim)
	}
	return nil
}

// skipOpenValue consumes the remainder of a composite value whose
// opening delimiter has already been read.
func skipOpenValue(dec *json.Decoder, open json.Delim, lim Limits) error {
	if open != '{' && open != '[' {
		return fmt.Errorf("unexpected delimiter %v", open)
	}
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if delim, ok := tok.(json.Delim); ok {
			switch delim {
			case '{', '[':
				depth++
				if depth > lim.MaxDepth {
					return fmt.Errorf("json nesting exceeds %d levels", lim.MaxDepth)
				}
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}
