package parsing

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/Energinet-DataHub/geh-message-archive/core"
)

// xmlNode is a minimal element tree for CIM XML documents. Matching is
// by local name, so the default namespace of the root element applies
// to all child lookups without explicit namespace plumbing.
type xmlNode struct {
	name     xml.Name
	text     string
	children []*xmlNode
}

// decodeXMLTree reads a whole document into an element tree, bounded by
// lim.MaxDepth.
func decodeXMLTree(data []byte, lim Limits) (*xmlNode, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var root *xmlNode
	var stack []*xmlNode

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) >= lim.MaxDepth {
				return nil, fmt.Errorf("xml nesting exceeds %d levels", lim.MaxDepth)
			}
			node := &xmlNode{name: t.Name}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("multiple root elements")
				}
				root = node
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, node)
			}
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("unbalanced end element %s", t.Name.Local)
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text += string(t)
			}
		}
	}

	if root == nil {
		return nil, fmt.Errorf("empty xml document")
	}
	return root, nil
}

// findFirst returns the first descendant with the given local name, in
// document order, or nil.
func (n *xmlNode) findFirst(local string) *xmlNode {
	for _, child := range n.children {
		if child.name.Local == local {
			return child
		}
		if found := child.findFirst(local); found != nil {
			return found
		}
	}
	return nil
}

// findFirstPrefix returns the first descendant whose local name starts
// with prefix, or nil.
func (n *xmlNode) findFirstPrefix(prefix string) *xmlNode {
	for _, child := range n.children {
		if strings.HasPrefix(child.name.Local, prefix) {
			return child
		}
		if found := child.findFirstPrefix(prefix); found != nil {
			return found
		}
	}
	return nil
}

// value returns the trimmed text of the first descendant with the given
// local name, "" when absent.
func (n *xmlNode) value(local string) string {
	if found := n.findFirst(local); found != nil {
		return strings.TrimSpace(found.text)
	}
	return ""
}

// parseXMLOverlay extracts the CIM XML business fields.
func parseXMLOverlay(rec *core.ParsedRecord, raw *core.RawRecord, lim Limits) error {
	root, err := decodeXMLTree(raw.Content, lim)
	if err != nil {
		return err
	}

	rec.RsmName = rsmNameFromRoot(root.name.Local)

	rec.MessageID = root.value("mRID")
	rec.MessageType = root.value("type")
	rec.ProcessType = root.value("process.processType")
	rec.BusinessSectorType = root.value("businessSector.type")
	rec.ReasonCode = root.value("reason.code")
	rec.SenderID = root.value("sender_MarketParticipant.mRID")
	rec.SenderRoleType = root.value("sender_MarketParticipant.marketRole.type")
	rec.ReceiverID = root.value("receiver_MarketParticipant.mRID")
	rec.ReceiverRoleType = root.value("receiver_MarketParticipant.marketRole.type")

	if created := root.value("createdDateTime"); created != "" {
		rec.CreatedDate = parsePayloadTime(created)
	}

	// A message carries either a MktActivityRecord or a Series child,
	// never both. Its nested original-transaction reference links the
	// message back to the transaction it answers.
	activity := root.findFirst("MktActivityRecord")
	if activity == nil {
		activity = root.findFirst("Series")
	}
	if activity != nil {
		ref := ""
		if refNode := activity.findFirstPrefix("originalTransactionIDReference"); refNode != nil {
			ref = strings.TrimSpace(refNode.text)
		}
		rec.TransactionRecords = append(rec.TransactionRecords, core.TransactionRecord{
			MRID:                             rec.MessageID,
			OriginalTransactionIDReferenceID: ref,
		})
	}

	return nil
}

// rsmNameFromRoot derives the lowercase document-type tag from a CIM
// root element name: the part before the first underscore, or the full
// name when there is none.
func rsmNameFromRoot(local string) string {
	if idx := strings.Index(local, "_"); idx >= 0 {
		local = local[:idx]
	}
	return strings.ToLower(local)
}
