package parsing

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/Energinet-DataHub/geh-message-archive/core"
)

// parseEbixOverlay extracts the Ebix business fields using forward-only
// XML token streaming. The Ebix grammar is flat enough that the
// document is never materialized: the header, process context and
// payload sections are scanned as they stream past.
func parseEbixOverlay(rec *core.ParsedRecord, raw *core.RawRecord, lim Limits) error {
	dec := xml.NewDecoder(bytes.NewReader(raw.Content))

	sawRoot := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		if !sawRoot {
			sawRoot = true
			// DK_RequestChangeOfSupplier -> "requestchangeofsupplier"
			if local := start.Name.Local; strings.HasPrefix(local, "DK_") {
				if idx := strings.Index(local, "_"); idx >= 0 {
					rec.RsmName = strings.ToLower(local[idx+1:])
				}
			}
			continue
		}

		switch {
		case start.Name.Local == "HeaderEnergyDocument":
			if err := scanEbixHeader(dec, start, rec, lim); err != nil {
				return err
			}
		case start.Name.Local == "ProcessEnergyContext":
			if err := scanEbixProcessContext(dec, start, rec, lim); err != nil {
				return err
			}
		case strings.HasPrefix(start.Name.Local, "Payload"):
			if len(rec.TransactionRecords) >= lim.MaxTransactions {
				return fmt.Errorf("%s carries more than %d transactions", start.Name.Local, lim.MaxTransactions)
			}
			if err := scanEbixPayload(dec, start, rec, lim); err != nil {
				return err
			}
		}
	}

	if !sawRoot {
		return fmt.Errorf("empty ebix document")
	}
	return nil
}

// scanEbixHeader reads the HeaderEnergyDocument section: message
// identity, document type, creation time and the two party blocks.
func scanEbixHeader(dec *xml.Decoder, open xml.StartElement, rec *core.ParsedRecord, lim Limits) error {
	for {
		tok, err := dec.Token()
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "Identification":
				if rec.MessageID, err = elementText(dec, lim); err != nil {
					return err
				}
			case "DocumentType":
				if rec.MessageType, err = elementText(dec, lim); err != nil {
					return err
				}
			case "Creation":
				value, err := elementText(dec, lim)
				if err != nil {
					return err
				}
				rec.CreatedDate = parsePayloadTime(value)
			case "SenderEnergyParty":
				if rec.SenderID, rec.SenderRoleType, err = scanEbixParty(dec, t, lim); err != nil {
					return err
				}
			case "RecipientEnergyParty":
				if rec.ReceiverID, rec.ReceiverRoleType, err = scanEbixParty(dec, t, lim); err != nil {
					return err
				}
			default:
				if err := skipElement(dec, lim); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if t.Name.Local == open.Name.Local {
				return nil
			}
		}
	}
}

// scanEbixParty reads the nested Identification and Role of a sender or
// recipient party block, bounded by the matching end element.
func scanEbixParty(dec *xml.Decoder, open xml.StartElement, lim Limits) (id, role string, err error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "Identification":
				if id, err = elementText(dec, lim); err != nil {
					return "", "", err
				}
			case "Role":
				if role, err = elementText(dec, lim); err != nil {
					return "", "", err
				}
			default:
				if err := skipElement(dec, lim); err != nil {
					return "", "", err
				}
			}
		case xml.EndElement:
			if t.Name.Local == open.Name.Local {
				return id, role, nil
			}
		}
	}
}

// scanEbixProcessContext reads the ProcessEnergyContext section.
func scanEbixProcessContext(dec *xml.Decoder, open xml.StartElement, rec *core.ParsedRecord, lim Limits) error {
	for {
		tok, err := dec.Token()
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "EnergyBusinessProcess":
				if rec.ProcessType, err = elementText(dec, lim); err != nil {
					return err
				}
			case "EnergyIndustryClassification":
				if rec.BusinessSectorType, err = elementText(dec, lim); err != nil {
					return err
				}
			default:
				if err := skipElement(dec, lim); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if t.Name.Local == open.Name.Local {
				return nil
			}
		}
	}
}

// scanEbixPayload reads one Payload* element into a transaction record.
// The payload's own Identification is the transaction mRID; a nested
// OriginalBusinessDocumentReferenceIdentity block carries the reference
// to the transaction being answered, "" when absent.
func scanEbixPayload(dec *xml.Decoder, open xml.StartElement, rec *core.ParsedRecord, lim Limits) error {
	var mrid, ref string

	for {
		tok, err := dec.Token()
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "Identification":
				if mrid != "" {
					if err := skipElement(dec, lim); err != nil {
						return err
					}
					continue
				}
				if mrid, err = elementText(dec, lim); err != nil {
					return err
				}
			case "OriginalBusinessDocumentReferenceIdentity":
				if ref, err = scanEbixReference(dec, t, lim); err != nil {
					return err
				}
			default:
				if err := skipElement(dec, lim); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if t.Name.Local == open.Name.Local {
				rec.TransactionRecords = append(rec.TransactionRecords, core.TransactionRecord{
					MRID:                             mrid,
					OriginalTransactionIDReferenceID: ref,
				})
				return nil
			}
		}
	}
}

// scanEbixReference reads the Identification of an
// OriginalBusinessDocumentReferenceIdentity block.
func scanEbixReference(dec *xml.Decoder, open xml.StartElement, lim Limits) (string, error) {
	ref := ""
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "Identification" && ref == "" {
				if ref, err = elementText(dec, lim); err != nil {
					return "", err
				}
				continue
			}
			if err := skipElement(dec, lim); err != nil {
				return "", err
			}
		case xml.EndElement:
			if t.Name.Local == open.Name.Local {
				return ref, nil
			}
		}
	}
}

// elementText consumes the element whose start tag was just read and
// returns its trimmed character data.
func elementText(dec *xml.Decoder, lim Limits) (string, error) {
	var sb strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth > lim.MaxDepth {
				return "", fmt.Errorf("xml nesting exceeds %d levels", lim.MaxDepth)
			}
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 1 {
				sb.Write(t)
			}
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

// skipElement consumes the element whose start tag was just read,
// including all nested content.
func skipElement(dec *xml.Decoder, lim Limits) error {
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
			if depth > lim.MaxDepth {
				return fmt.Errorf("xml nesting exceeds %d levels", lim.MaxDepth)
			}
		case xml.EndElement:
			depth--
		}
	}
	return nil
}
