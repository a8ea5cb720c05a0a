package quote

import (
	"strconv"
	"strings"
)

// FieldCode is a broker market-data snapshot field identifier. Snapshot
// responses key values by the decimal string of these codes; the codes are
// kept here as a lookup table so records stay fixed-shape instead of being
// built from dynamically keyed maps.
type FieldCode int

const (
	FieldLastPrice      FieldCode = 31
	FieldSymbol         FieldCode = 55
	FieldBidPrice       FieldCode = 84
	FieldAskSize        FieldCode = 85
	FieldAskPrice       FieldCode = 86
	FieldVolume         FieldCode = 87
	FieldBidSize        FieldCode = 88
	FieldExchange       FieldCode = 6004
	FieldConID          FieldCode = 6008
	FieldUnderlyingCon  FieldCode = 6457
	FieldMktDataAvail   FieldCode = 6509
	FieldAskExch        FieldCode = 7057
	FieldLastExch       FieldCode = 7058
	FieldLastSize       FieldCode = 7059
	FieldBidExch        FieldCode = 7068
	FieldLastYield      FieldCode = 7698
	FieldBidYield       FieldCode = 7699
	FieldAskYield       FieldCode = 7720
	FieldAvgVolume      FieldCode = 7282
	FieldContractDesc   FieldCode = 7219
	FieldListingExch    FieldCode = 7221
	FieldMonths         FieldCode = 6072
	FieldRegularExpiry  FieldCode = 6073
	FieldImpliedVol     FieldCode = 7084
	FieldConIDExchange  FieldCode = 7094
	FieldOpenInterest   FieldCode = 7697
	FieldDailyPnL       FieldCode = 78
	FieldRealizedPnL    FieldCode = 79
	FieldRight          FieldCode = 201
	FieldShortableShrs  FieldCode = 7636
	FieldAvgPrice       FieldCode = 74
	FieldMarker         FieldCode = 6119
	FieldCompany        FieldCode = 7051
	FieldText           FieldCode = 58
)

// BondSnapshotFields are the codes requested for deliverable bonds.
var BondSnapshotFields = []FieldCode{
	FieldSymbol, FieldText, FieldLastPrice, FieldLastSize, FieldLastYield,
	FieldAvgPrice, FieldBidPrice, FieldBidSize, FieldBidYield,
	FieldAskPrice, FieldAskSize, FieldAskYield, FieldVolume,
	FieldAvgVolume, FieldExchange, FieldConID, FieldMktDataAvail,
	FieldCompany, FieldContractDesc, FieldListingExch,
}

// FuturesSnapshotFields are the codes requested for futures contracts.
var FuturesSnapshotFields = []FieldCode{
	FieldLastPrice, FieldSymbol, FieldBidPrice, FieldAskSize,
	FieldAskPrice, FieldVolume, FieldBidSize, FieldExchange, FieldConID,
	FieldMonths, FieldRegularExpiry, FieldUnderlyingCon, FieldMktDataAvail,
	FieldLastSize, FieldImpliedVol, FieldConIDExchange, FieldAvgVolume,
	FieldOpenInterest,
}

// Key is the snapshot response key for the code.
func (f FieldCode) Key() string {
	return strconv.Itoa(int(f))
}

// FieldCSV renders the request parameter for a set of codes.
func FieldCSV(fields []FieldCode) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Key()
	}
	return strings.Join(parts, ",")
}
