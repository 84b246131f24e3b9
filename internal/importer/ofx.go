package importer

import (
	"fmt"
	"io"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/charmbracelet/log"

	"github.com/brentwalther/jcf-sub000/internal/id"
	"github.com/brentwalther/jcf-sub000/internal/logging"
	"github.com/brentwalther/jcf-sub000/internal/model"
)

// OFXParser reads OFX/QFX bank and credit card statements.
type OFXParser struct {
	Logger *log.Logger
	// Accounts maps a statement key ("BANKID/ACCTID" for bank statements,
	// "ACCTID" for credit cards) to the account name to book against.
	Accounts map[string]string
}

// Format returns the parser name.
func (p *OFXParser) Format() string { return "ofx" }

// Parse reads an OFX response. Each statement transaction becomes one
// Transaction and one Split against the statement's account.
func (p *OFXParser) Parse(r io.Reader) (*model.Model, error) {
	logger := logging.OrDefault(p.Logger).WithPrefix("ofx")

	resp, err := ofxgo.ParseResponse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing OFX: %w", err)
	}
	if len(resp.Bank) == 0 && len(resp.CreditCard) == 0 {
		logger.Warn("no bank or credit card statements")
	}

	b := model.NewBuilder()
	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok {
			logger.Warn("unexpected bank message", "type", fmt.Sprintf("%T", msg))
			continue
		}
		key := string(stmt.BankAcctFrom.BankID) + "/" + string(stmt.BankAcctFrom.AcctID)
		acct := p.account(key, "Assets", model.AccountTypeAsset)
		p.addStatement(b, logger, acct, key, stmt.BankTranList)
	}
	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok {
			logger.Warn("unexpected credit card message", "type", fmt.Sprintf("%T", msg))
			continue
		}
		key := string(stmt.CCAcctFrom.AcctID)
		acct := p.account(key, "Liabilities", model.AccountTypeLiability)
		p.addStatement(b, logger, acct, key, stmt.BankTranList)
	}
	return b.Build(), nil
}

func (p *OFXParser) account(key, parent string, t model.AccountType) model.Account {
	name, ok := p.Accounts[key]
	if !ok {
		name = parent + ":" + key
	}
	return model.Account{ID: name, Name: name, Type: t}
}

func (p *OFXParser) addStatement(b *model.Builder, logger *log.Logger, acct model.Account, key string, list *ofxgo.TransactionList) {
	b.AddAccount(acct)
	if list == nil {
		logger.Warn("statement has no transaction list", "account", acct.Name)
		return
	}
	for _, tr := range list.Transactions {
		desc := strings.TrimSpace(string(tr.Name))
		if desc == "" {
			desc = strings.TrimSpace(string(tr.Memo))
		}
		if tr.FiTID == "" {
			logger.Warn("transaction without FITID", "account", acct.Name, "description", desc)
		}
		txnID := id.FromParts("ofx", key, string(tr.FiTID), tr.DtPosted.Format("20060102"))
		split, err := model.MakeSplit(acct.ID, txnID, &tr.TrnAmt.Rat)
		if err != nil {
			logger.Warn("skipping transaction", "account", acct.Name, "description", desc, "err", err)
			continue
		}
		b.AddTransaction(model.NewTransaction(txnID, tr.DtPosted.Time, desc))
		b.AddSplit(split)
	}
}
