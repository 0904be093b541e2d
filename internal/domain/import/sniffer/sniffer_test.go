package sniffer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FACorreiaa/statement-ledger/internal/domain/import/model"
	"github.com/FACorreiaa/statement-ledger/internal/domain/import/strategy"
)

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		line string
		want rune
	}{
		{"Date,Description,Amount", ','},
		{"date;description;amount", ';'},
		{"Date\tDescription\tAmount", '\t'},
		{"Date|Description|Amount", '|'},
		{"\uFEFFData;Descricao;Valor\r", ';'},
		{"SingleColumn", ','},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectDelimiter(tt.line))
		})
	}
}

func TestDetectBank(t *testing.T) {
	tests := []struct {
		name string
		text string
		want model.BankType
	}{
		{"td", "TD Bank, N.A.\nStatement Period: Jan 1 2024-Jan 31 2024", model.BankTD},
		{"ally", "Ally Bank Member FDIC", model.BankAlly},
		{"ally website", "Questions? Visit ally.com", model.BankAlly},
		{"chase", "JPMorgan Chase Bank, N.A.", model.BankChase},
		{"wells fargo", "Wells Fargo Everyday Checking", model.BankWellsFargo},
		{"case insensitive", "WELLS FARGO BANK", model.BankWellsFargo},
		{"ally wins over chase", "Transfer to Chase card ... Ally Bank Savings", model.BankAlly},
		{"td wins over chase", "TD BANK ... payment to CHASE", model.BankTD},
		{"purchase is not chase", "POS PURCHASE CORNER DELI", model.BankUnknown},
		{"unknown", "First Example Credit Union", model.BankUnknown},
		{"empty", "", model.BankUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectBank(tt.text))
		})
	}
}

func TestResolveBank(t *testing.T) {
	assert.Equal(t, model.BankChase, ResolveBank("Chase", "TD Bank statement"))
	assert.Equal(t, model.BankTD, ResolveBank("My Local Bank", "TD Bank statement"))
	assert.Equal(t, model.BankTD, ResolveBank("", "TD Bank statement"))
}

func TestSelectStrategy(t *testing.T) {
	tests := []struct {
		bank          model.BankType
		accountType   model.AccountType
		statementType model.StatementType
		want          strategy.Key
	}{
		{model.BankTD, model.AccountChecking, model.StatementMonthly, strategy.KeyTDChecking},
		{model.BankTD, model.AccountSavings, "", strategy.KeyTDChecking},
		{model.BankTD, model.AccountCreditCard, "", strategy.KeyTDCreditCard},
		{model.BankAlly, model.AccountSavings, "", strategy.KeyAllySavings},
		{model.BankChase, model.AccountCreditCard, "", strategy.KeyChaseCreditCard},
		{model.BankChase, model.AccountChecking, "", strategy.KeyGeneric},
		{model.BankWellsFargo, model.AccountChecking, "", strategy.KeyWellsFargoChecking},
		{model.BankTD, model.AccountChecking, model.StatementTransactionHistory, strategy.KeyGeneric},
		{model.BankUnknown, model.AccountChecking, "", strategy.KeyGeneric},
		{model.BankAlly, model.AccountInvestment, "", strategy.KeyGeneric},
	}
	for _, tt := range tests {
		t.Run(string(tt.bank)+"/"+string(tt.accountType), func(t *testing.T) {
			assert.Equal(t, tt.want, SelectStrategy(tt.bank, tt.accountType, tt.statementType))
		})
	}
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, " ally com ", normalizeText("ALLY.COM"))
	assert.Equal(t, " td bank n a ", normalizeText("--TD Bank, N.A."))
	assert.Equal(t, " ", normalizeText(""))
}
