package parsing

import (
	"strings"
	"testing"
	"time"

	"github.com/Energinet-DataHub/geh-message-archive/core"
)

const cimXMLDocument = `<?xml version="1.0" encoding="UTF-8"?>
<cim:RejectRequestChangeOfSupplier_MarketDocument xmlns:cim="urn:ediel.org:structure:rejectrequestchangeofsupplier:0:1">
	<cim:mRID>25369874</cim:mRID>
	<cim:type>414</cim:type>
	<cim:process.processType>E65</cim:process.processType>
	<cim:businessSector.type>23</cim:businessSector.type>
	<cim:reason.code>A02</cim:reason.code>
	<cim:sender_MarketParticipant.mRID codingScheme="A10">5799999933318</cim:sender_MarketParticipant.mRID>
	<cim:sender_MarketParticipant.marketRole.type>DDZ</cim:sender_MarketParticipant.marketRole.type>
	<cim:receiver_MarketParticipant.mRID codingScheme="A10">5790000000000</cim:receiver_MarketParticipant.mRID>
	<cim:receiver_MarketParticipant.marketRole.type>DDQ</cim:receiver_MarketParticipant.marketRole.type>
	<cim:createdDateTime>2022-09-07T09:30:47Z</cim:createdDateTime>
	<cim:MktActivityRecord>
		<cim:mRID>3a40b56a</cim:mRID>
		<cim:originalTransactionIDReference_MktActivityRecord.mRID>origid77</cim:originalTransactionIDReference_MktActivityRecord.mRID>
	</cim:MktActivityRecord>
</cim:RejectRequestChangeOfSupplier_MarketDocument>`

func parseXML(t *testing.T, content string) *core.ParsedRecord {
	t.Helper()
	raw := testRawRecord(content)
	rec, err := Parse(KindXML, raw, DefaultLimits())
	if err != nil {
		t.Fatalf("Parse(KindXML) error = %v", err)
	}
	return rec
}

func TestParseXMLMarketDocument(t *testing.T) {
	rec := parseXML(t, cimXMLDocument)

	if rec.RsmName != "rejectrequestchangeofsupplier" {
		t.Errorf("RsmName = %q", rec.RsmName)
	}
	if rec.MessageID != "25369874" {
		t.Errorf("MessageID = %q", rec.MessageID)
	}
	if rec.MessageType != "414" {
		t.Errorf("MessageType = %q", rec.MessageType)
	}
	if rec.ProcessType != "E65" {
		t.Errorf("ProcessType = %q", rec.ProcessType)
	}
	if rec.BusinessSectorType != "23" {
		t.Errorf("BusinessSectorType = %q", rec.BusinessSectorType)
	}
	if rec.ReasonCode != "A02" {
		t.Errorf("ReasonCode = %q", rec.ReasonCode)
	}
	if rec.SenderID != "5799999933318" || rec.SenderRoleType != "DDZ" {
		t.Errorf("sender = %q/%q", rec.SenderID, rec.SenderRoleType)
	}
	if rec.ReceiverID != "5790000000000" || rec.ReceiverRoleType != "DDQ" {
		t.Errorf("receiver = %q/%q", rec.ReceiverID, rec.ReceiverRoleType)
	}

	wantCreated := time.Date(2022, 9, 7, 9, 30, 47, 0, time.UTC)
	if rec.CreatedDate == nil || !rec.CreatedDate.Equal(wantCreated) {
		t.Errorf("CreatedDate = %v, want %v", rec.CreatedDate, wantCreated)
	}

	if len(rec.TransactionRecords) != 1 {
		t.Fatalf("TransactionRecords = %v", rec.TransactionRecords)
	}
	tr := rec.TransactionRecords[0]
	if tr.MRID != "25369874" {
		t.Errorf("transaction MRID = %q, want message id", tr.MRID)
	}
	if tr.OriginalTransactionIDReferenceID != "origid77" {
		t.Errorf("transaction reference = %q", tr.OriginalTransactionIDReferenceID)
	}
	if !rec.ParsingSuccess {
		t.Error("ParsingSuccess = false")
	}
}

// A document whose only mRID sits inside the activity record still
// yields both the message id and the transaction id from it.
func TestParseXMLNestedMRIDOnly(t *testing.T) {
	doc := `<message>
		<MktActivityRecord>
			<mRID>1234567</mRID>
		</MktActivityRecord>
	</message>`

	rec := parseXML(t, doc)

	if rec.MessageID != "1234567" {
		t.Errorf("MessageID = %q, want 1234567", rec.MessageID)
	}
	if len(rec.TransactionRecords) != 1 || rec.TransactionRecords[0].MRID != "1234567" {
		t.Errorf("TransactionRecords = %v", rec.TransactionRecords)
	}
	if rec.TransactionRecords[0].OriginalTransactionIDReferenceID != "" {
		t.Errorf("reference = %q, want empty", rec.TransactionRecords[0].OriginalTransactionIDReferenceID)
	}
	if rec.RsmName != "message" {
		t.Errorf("RsmName = %q", rec.RsmName)
	}
}

func TestParseXMLNestedMRIDWithReference(t *testing.T) {
	doc := `<message><MktActivityRecord><mRID>1234567</mRID><originalTransactionIDReference_MktActivityRecord.mRID>1234</originalTransactionIDReference_MktActivityRecord.mRID></MktActivityRecord></message>`

	rec := parseXML(t, doc)

	if len(rec.TransactionRecords) != 1 {
		t.Fatalf("TransactionRecords = %v, want exactly one", rec.TransactionRecords)
	}
	tr := rec.TransactionRecords[0]
	if tr.MRID != "1234567" || tr.OriginalTransactionIDReferenceID != "1234" {
		t.Errorf("transaction = %+v", tr)
	}
}

func TestParseXMLSeriesTransaction(t *testing.T) {
	doc := `<NotifyValidatedMeasureData_MarketDocument>
		<mRID>m9</mRID>
		<Series>
			<mRID>s1</mRID>
			<originalTransactionIDReference_Series.mRID>orig-s</originalTransactionIDReference_Series.mRID>
		</Series>
	</NotifyValidatedMeasureData_MarketDocument>`

	rec := parseXML(t, doc)

	if rec.RsmName != "notifyvalidatedmeasuredata" {
		t.Errorf("RsmName = %q", rec.RsmName)
	}
	if len(rec.TransactionRecords) != 1 {
		t.Fatalf("TransactionRecords = %v", rec.TransactionRecords)
	}
	if rec.TransactionRecords[0].OriginalTransactionIDReferenceID != "orig-s" {
		t.Errorf("reference = %q", rec.TransactionRecords[0].OriginalTransactionIDReferenceID)
	}
}

func TestParseXMLNoTransaction(t *testing.T) {
	doc := `<Acknowledgement_MarketDocument><mRID>a1</mRID></Acknowledgement_MarketDocument>`

	rec := parseXML(t, doc)

	if rec.MessageID != "a1" {
		t.Errorf("MessageID = %q", rec.MessageID)
	}
	if len(rec.TransactionRecords) != 0 {
		t.Errorf("TransactionRecords = %v, want none", rec.TransactionRecords)
	}
}

func TestParseXMLCreatedDateFallsBackToLogDate(t *testing.T) {
	rec := parseXML(t, `<Acknowledgement_MarketDocument><mRID>a1</mRID></Acknowledgement_MarketDocument>`)

	if rec.CreatedDate == nil {
		t.Fatal("CreatedDate = nil")
	}
	if !rec.CreatedDate.Equal(*rec.LogCreatedDate) {
		t.Errorf("CreatedDate = %v, want log date %v", rec.CreatedDate, rec.LogCreatedDate)
	}
}

func TestParseXMLMalformed(t *testing.T) {
	raw := testRawRecord(`<open><unclosed>`)

	_, err := Parse(KindXML, raw, DefaultLimits())
	if err == nil {
		t.Fatal("expected error for malformed xml")
	}
}

func TestParseXMLDepthLimit(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 20; i++ {
		sb.WriteString("<a>")
	}
	for i := 0; i < 20; i++ {
		sb.WriteString("</a>")
	}
	raw := testRawRecord(sb.String())

	_, err := Parse(KindXML, raw, Limits{MaxDepth: 5, MaxTransactions: 10})
	if err == nil {
		t.Fatal("expected depth limit error")
	}
}
