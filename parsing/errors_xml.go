package parsing

import (
	"bytes"
	"encoding/xml"
	"io"

	"github.com/Energinet-DataHub/geh-message-archive/core"
)

// parseErrorXMLOverlay extracts code/message pairs from an XML error
// envelope: one or more <Error><Code>..</Code><Message>..</Message></Error>
// blocks. Error parsers never populate transaction records.
func parseErrorXMLOverlay(rec *core.ParsedRecord, raw *core.RawRecord, lim Limits) error {
	dec := xml.NewDecoder(bytes.NewReader(raw.Content))

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "Error" {
			continue
		}

		entry, err := scanXMLErrorEntry(dec, start, lim)
		if err != nil {
			return err
		}
		rec.Errors = append(rec.Errors, entry)
	}
}

func scanXMLErrorEntry(dec *xml.Decoder, open xml.StartElement, lim Limits) (core.ErrorEntry, error) {
	var entry core.ErrorEntry

	for {
		tok, err := dec.Token()
		if err != nil {
			return entry, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "Code":
				if entry.Code, err = elementText(dec, lim); err != nil {
					return entry, err
				}
			case "Message":
				if entry.Message, err = elementText(dec, lim); err != nil {
					return entry, err
				}
			default:
				if err := skipElement(dec, lim); err != nil {
					return entry, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == open.Name.Local {
				return entry, nil
			}
		}
	}
}
