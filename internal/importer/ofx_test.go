package importer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brentwalther/jcf-sub000/internal/model"
)

const ofxHeader = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

`

const ofxSignon = `<SIGNONMSGSRSV1>
<SONRS>
<STATUS><CODE>0</CODE><SEVERITY>INFO</SEVERITY></STATUS>
<DTSERVER>20170110120000.000[0:GMT]</DTSERVER>
<LANGUAGE>ENG</LANGUAGE>
</SONRS>
</SIGNONMSGSRSV1>
`

const ofxBankStatement = ofxHeader + `<OFX>
` + ofxSignon + `<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1001</TRNUID>
<STATUS><CODE>0</CODE><SEVERITY>INFO</SEVERITY></STATUS>
<STMTRS>
<CURDEF>USD</CURDEF>
<BANKACCTFROM><BANKID>318398732</BANKID><ACCTID>78346129</ACCTID><ACCTTYPE>CHECKING</ACCTTYPE></BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20170101120000.000[0:GMT]</DTSTART>
<DTEND>20170110120000.000[0:GMT]</DTEND>
<STMTTRN>
<TRNTYPE>DEBIT</TRNTYPE>
<DTPOSTED>20170105120000.000[0:GMT]</DTPOSTED>
<TRNAMT>-56.91</TRNAMT>
<FITID>20170105-1</FITID>
<NAME>CORNER STORE</NAME>
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT</TRNTYPE>
<DTPOSTED>20170106120000.000[0:GMT]</DTPOSTED>
<TRNAMT>1500.00</TRNAMT>
<FITID>20170106-1</FITID>
<MEMO>PAYROLL</MEMO>
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL><BALAMT>2000.00</BALAMT><DTASOF>20170110120000.000[0:GMT]</DTASOF></LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>
`

const ofxCardStatement = ofxHeader + `<OFX>
` + ofxSignon + `<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<TRNUID>2002</TRNUID>
<STATUS><CODE>0</CODE><SEVERITY>INFO</SEVERITY></STATUS>
<CCSTMTRS>
<CURDEF>USD</CURDEF>
<CCACCTFROM><ACCTID>4111222233334444</ACCTID></CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20170101120000.000[0:GMT]</DTSTART>
<DTEND>20170110120000.000[0:GMT]</DTEND>
<STMTTRN>
<TRNTYPE>DEBIT</TRNTYPE>
<DTPOSTED>20170103120000.000[0:GMT]</DTPOSTED>
<TRNAMT>-4.00</TRNAMT>
<FITID>cc-1</FITID>
<NAME>GITHUB</NAME>
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL><BALAMT>-4.00</BALAMT><DTASOF>20170110120000.000[0:GMT]</DTASOF></LEDGERBAL>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
</OFX>
`

func TestOFXParser_BankStatement(t *testing.T) {
	p := &OFXParser{Logger: log.New(&bytes.Buffer{})}
	m, err := p.Parse(strings.NewReader(ofxBankStatement))
	require.NoError(t, err)

	acct, ok := m.Account("Assets:318398732/78346129")
	require.True(t, ok)
	assert.Equal(t, model.AccountTypeAsset, acct.Type)

	txns := m.Transactions()
	require.Len(t, txns, 2)
	assert.Equal(t, "CORNER STORE", txns[0].Description)
	assert.Equal(t, "2017-01-05", txns[0].PostDate().Format("2006-01-02"))
	assert.Equal(t, "PAYROLL", txns[1].Description)

	s := m.Splits(txns[0].ID)
	require.Len(t, s, 1)
	assert.Equal(t, acct.ID, s[0].AccountID)
	assert.Equal(t, "-56.91", s[0].Decimal().String())
	assert.Equal(t, "1500", m.Splits(txns[1].ID)[0].Decimal().String())
}

func TestOFXParser_StableIDs(t *testing.T) {
	p := &OFXParser{Logger: log.New(&bytes.Buffer{})}
	a, err := p.Parse(strings.NewReader(ofxBankStatement))
	require.NoError(t, err)
	b, err := p.Parse(strings.NewReader(ofxBankStatement))
	require.NoError(t, err)
	assert.Equal(t, a.Transactions(), b.Transactions())
}

func TestOFXParser_CreditCardWithMappedAccount(t *testing.T) {
	p := &OFXParser{
		Logger:   log.New(&bytes.Buffer{}),
		Accounts: map[string]string{"4111222233334444": "Liabilities:Visa"},
	}
	m, err := p.Parse(strings.NewReader(ofxCardStatement))
	require.NoError(t, err)

	acct, ok := m.Account("Liabilities:Visa")
	require.True(t, ok)
	assert.Equal(t, model.AccountTypeLiability, acct.Type)

	splits := m.AllSplits()
	require.Len(t, splits, 1)
	assert.Equal(t, "Liabilities:Visa", splits[0].AccountID)
	assert.Equal(t, int64(-4), splits[0].ValueNumerator)
	assert.Equal(t, int64(1), splits[0].ValueDenominator)
}

func TestOFXParser_Garbage(t *testing.T) {
	p := &OFXParser{Logger: log.New(&bytes.Buffer{})}
	_, err := p.Parse(strings.NewReader("not an ofx file"))
	assert.Error(t, err)
}
