package strategy

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-ledger/internal/domain/import/model"
)

const tdCheckingStatement = `TD Bank
Statement Period: 01/01/2024-01/31/2024
DAILY ACCOUNT ACTIVITY
Electronic Deposits
POSTING DATE DESCRIPTION AMOUNT
01/02
01/15
CCD DEPOSIT, ACME CORP PAYROLL
ID 12345
CCD DEPOSIT, ACME CORP PAYROLL
1,250.00
1,250.00
Subtotal: 2,500.00
Electronic Payments
POSTING DATE DESCRIPTION AMOUNT
01/05
01/20
DEBIT CARD PURCHASE, AUT 010424 VISA DDA PUR
WHOLE FOODS MARKET PRINCETON NJ
ELECTRONIC PMT-WEB, PSEG PAYMENT
54.32
120.00
Subtotal: 174.32
Checks Paid
01/10 1234 150.00
Subtotal: 150.00
DAILY BALANCE SUMMARY
01/02 2,250.00
`

func TestTDChecking_Parse(t *testing.T) {
	txs := NewTDChecking(discardLogger()).Parse(tdCheckingStatement, model.AccountChecking)

	want := []model.ParsedTransaction{
		{Date: date(2024, time.January, 2), Description: "CCD DEPOSIT, ACME CORP PAYROLL ID 12345", Amount: dec("1250"), Direction: model.DirectionIncome},
		{Date: date(2024, time.January, 15), Description: "CCD DEPOSIT, ACME CORP PAYROLL", Amount: dec("1250"), Direction: model.DirectionIncome},
		{Date: date(2024, time.January, 5), Description: "DEBIT CARD PURCHASE, AUT 010424 VISA DDA PUR WHOLE FOODS MARKET PRINCETON NJ", Amount: dec("54.32"), Direction: model.DirectionExpense},
		{Date: date(2024, time.January, 20), Description: "ELECTRONIC PMT-WEB, PSEG PAYMENT", Amount: dec("120"), Direction: model.DirectionExpense},
		{Date: date(2024, time.January, 10), Description: "Check 1234", Amount: dec("150"), Direction: model.DirectionExpense},
	}
	require.Len(t, txs, len(want))
	for i := range want {
		assertTx(t, want[i], txs[i])
	}
}

func TestTDChecking_IgnoresTextOutsideSections(t *testing.T) {
	text := "Statement Date: 01/31/2024\n01/02 SOMETHING 10.00\nAccount Summary\nBeginning Balance 100.00\n"
	assert.Empty(t, NewTDChecking(discardLogger()).Parse(text, model.AccountChecking))
}

const tdCardStatement = `TD Bank
Statement Date: 02/10/2024
Transactions
Trans Date Post Date Reference Number Description Amount
01/03
01/04
24692164004100012345678
WHOLE FOODS MARKET
PRINCETON NJ
01/05
01/06
24431064006200098765432
PAYMENT - THANK YOU
$45.67
-$500.00
TOTAL NEW BALANCE $1,234.00
`

func TestCreditCard_TDGroupsZipWithTrailingAmounts(t *testing.T) {
	txs := NewTDCreditCard(discardLogger()).Parse(tdCardStatement, model.AccountCreditCard)

	require.Len(t, txs, 2)
	assertTx(t, model.ParsedTransaction{
		Date: date(2024, time.January, 3), Description: "WHOLE FOODS MARKET PRINCETON NJ",
		Amount: dec("45.67"), Direction: model.DirectionExpense,
	}, txs[0])
	assertTx(t, model.ParsedTransaction{
		Date: date(2024, time.January, 5), Description: "PAYMENT - THANK YOU",
		Amount: dec("500"), Direction: model.DirectionIncome,
	}, txs[1])
}

func TestCreditCard_MismatchedStreamsKeepPairedRows(t *testing.T) {
	text := strings.Replace(tdCardStatement, "-$500.00\n", "", 1)
	txs := NewTDCreditCard(discardLogger()).Parse(text, model.AccountCreditCard)

	require.Len(t, txs, 1)
	assert.Equal(t, "WHOLE FOODS MARKET PRINCETON NJ", txs[0].Description)
}

const chaseStatement = `CHASE
Statement Date: 02/03/2024
ACCOUNT ACTIVITY
Date of Transaction Merchant Name or Transaction Description $ Amount
PAYMENTS AND OTHER CREDITS
01/15 Payment Thank You-Mobile -500.00
PURCHASE
01/05 STARBUCKS STORE 12345 NEW YORK NY 5.75
01/07 AMAZON MKTPLACE PMTS AMZN.COM/BILL WA 23.99
01/09 AMAZON RETURN -23.99
TOTALS YEAR-TO-DATE
01/31 NOT A TRANSACTION 99.99
`

func TestCreditCard_ChaseInlineSections(t *testing.T) {
	txs := NewChaseCreditCard(discardLogger()).Parse(chaseStatement, model.AccountCreditCard)

	want := []model.ParsedTransaction{
		{Date: date(2024, time.January, 15), Description: "Payment Thank You-Mobile", Amount: dec("500"), Direction: model.DirectionIncome},
		{Date: date(2024, time.January, 5), Description: "STARBUCKS STORE 12345 NEW YORK NY", Amount: dec("5.75"), Direction: model.DirectionExpense},
		{Date: date(2024, time.January, 7), Description: "AMAZON MKTPLACE PMTS AMZN.COM/BILL WA", Amount: dec("23.99"), Direction: model.DirectionExpense},
		{Date: date(2024, time.January, 9), Description: "AMAZON RETURN", Amount: dec("23.99"), Direction: model.DirectionIncome},
	}
	require.Len(t, txs, len(want))
	for i := range want {
		assertTx(t, want[i], txs[i])
	}
}

const allyStatement = `Ally Bank
Statement Date 03/31/2024
Account Summary
Online Savings Account ...1234 $1,000.00 $937.56
Money Market Account ...5678 $2,000.00 $2,100.00
Activity
Online Savings Account ...1234
Date Description Credits Debits Balance
03/01/2024 Beginning Balance $1,000.00
03/15/2024 Interest Paid $37.56 $1,037.56
03/20/2024 Internet transfer to ...5678 -$100.00 $937.56
Money Market Account ...5678
03/01/2024 Beginning Balance $2,000.00
03/20/2024 Internet transfer from ...1234 $100.00 $2,100.00
`

func TestAllySavings_TagsLinesWithTheirAccount(t *testing.T) {
	txs := NewAllySavings(discardLogger()).Parse(allyStatement, model.AccountSavings)

	want := []model.ParsedTransaction{
		{Date: date(2024, time.March, 15), Description: "Interest Paid", Amount: dec("37.56"), Direction: model.DirectionIncome, AccountHint: "1234"},
		{Date: date(2024, time.March, 20), Description: "Internet transfer to ...5678", Amount: dec("100"), Direction: model.DirectionExpense, AccountHint: "1234"},
		{Date: date(2024, time.March, 20), Description: "Internet transfer from ...1234", Amount: dec("100"), Direction: model.DirectionIncome, AccountHint: "5678"},
	}
	require.Len(t, txs, len(want))
	for i := range want {
		assertTx(t, want[i], txs[i])
	}
}

func TestAllySavings_UnsignedAmountsUseKeywords(t *testing.T) {
	text := "Ally Bank\nOnline Savings Account ...1234\n" +
		"03/15/2024 Interest Paid $37.56\n" +
		"03/18/2024 ATM Withdrawal $40.00\n"
	txs := NewAllySavings(discardLogger()).Parse(text, model.AccountSavings)

	require.Len(t, txs, 2)
	assert.Equal(t, model.DirectionIncome, txs[0].Direction)
	assert.Equal(t, model.DirectionExpense, txs[1].Direction)
}

func wfRowLine(date, desc, deposit, withdrawal, balance string) string {
	return fmt.Sprintf("%-8s%-48s%12s%16s%16s", date, desc, deposit, withdrawal, balance)
}

func TestWellsFargoChecking_ColumnPositionDecidesDirection(t *testing.T) {
	text := strings.Join([]string{
		"Wells Fargo Everyday Checking",
		"Statement period: 01/01/2024 - 01/31/2024",
		"Transaction history",
		wfRowLine("", "", "Deposits/", "Withdrawals/", "Ending daily"),
		wfRowLine("Date", "Description", "Additions", "Subtractions", "balance"),
		wfRowLine("1/3", "Online Transfer From Savings Ref #IB0X", "500.00", "", "1,500.00"),
		wfRowLine("1/5", "Purchase authorized on 01/04 Safeway", "", "42.10", ""),
		wfRowLine("", "Store 1234 Pleasanton CA", "", "", ""),
		wfRowLine("1/8", "Zelle to John Smith", "", "100.00", "1,357.90"),
		wfRowLine("Ending balance on 1/31", "", "", "", "1,357.90"),
	}, "\n")

	txs := NewWellsFargoChecking(discardLogger()).Parse(text, model.AccountChecking)

	want := []model.ParsedTransaction{
		{Date: date(2024, time.January, 3), Description: "Online Transfer From Savings Ref #IB0X", Amount: dec("500"), Direction: model.DirectionIncome},
		{Date: date(2024, time.January, 5), Description: "Purchase authorized on 01/04 Safeway Store 1234 Pleasanton CA", Amount: dec("42.10"), Direction: model.DirectionExpense},
		{Date: date(2024, time.January, 8), Description: "Zelle to John Smith", Amount: dec("100"), Direction: model.DirectionExpense},
	}
	require.Len(t, txs, len(want))
	for i := range want {
		assertTx(t, want[i], txs[i])
	}
}

func TestWellsFargoChecking_SingleSpacedTextUsesKeywords(t *testing.T) {
	text := strings.Join([]string{
		"Wells Fargo Everyday Checking",
		"Statement period: 01/01/2024 - 01/31/2024",
		"Transaction history",
		"Deposits/ Withdrawals/ Ending daily",
		"Date Description Additions Subtractions balance",
		"1/3 Payroll ACME 2,000.00 3,000.00",
		"1/5 Purchase authorized on 01/04 Safeway 42.10 2,957.90",
		"1/9 Interest Paid 1.25",
	}, "\n")

	txs := NewWellsFargoChecking(discardLogger()).Parse(text, model.AccountChecking)

	want := []model.ParsedTransaction{
		{Date: date(2024, time.January, 3), Description: "Payroll ACME", Amount: dec("2000"), Direction: model.DirectionIncome},
		{Date: date(2024, time.January, 5), Description: "Purchase authorized on 01/04 Safeway", Amount: dec("42.10"), Direction: model.DirectionExpense},
		{Date: date(2024, time.January, 9), Description: "Interest Paid", Amount: dec("1.25"), Direction: model.DirectionIncome},
	}
	require.Len(t, txs, len(want))
	for i := range want {
		assertTx(t, want[i], txs[i])
	}
}

func TestWellsFargoHeaderColumns(t *testing.T) {
	_, ok := wfHeaderColumns("Deposits/ Withdrawals/ Ending daily")
	assert.False(t, ok)

	cols, ok := wfHeaderColumns(wfRowLine("", "", "Deposits/", "Withdrawals/", "Ending daily"))
	require.True(t, ok)
	assert.Equal(t, 68, cols.depositEnd)
	assert.Equal(t, 84, cols.withdrawEnd)
}

func TestGeneric_Parse(t *testing.T) {
	text := `LONELY LINE 3.00
Statement Date: 01/31/2024
Page 1 of 3
Beginning Balance 1,000.00
01/15/2024 STARBUCKS 5.75
01/03 01/04 WHOLE FOODS 45.67
01/16/2024 ADJUSTMENT 0.00
01/17/2024 PAYROLL DEPOSIT 1,250.00 2,200.00
01/20/2024
COFFEE SHOP 4.50
Total fees 0.00
`
	txs := NewGeneric(discardLogger()).Parse(text, model.AccountChecking)

	want := []model.ParsedTransaction{
		{Date: date(2024, time.January, 15), Description: "STARBUCKS", Amount: dec("5.75"), Direction: model.DirectionExpense},
		{Date: date(2024, time.January, 3), Description: "WHOLE FOODS", Amount: dec("45.67"), Direction: model.DirectionExpense},
		{Date: date(2024, time.January, 17), Description: "PAYROLL DEPOSIT", Amount: dec("1250"), Direction: model.DirectionIncome},
		{Date: date(2024, time.January, 20), Description: "COFFEE SHOP", Amount: dec("4.50"), Direction: model.DirectionExpense},
	}
	require.Len(t, txs, len(want))
	for i := range want {
		assertTx(t, want[i], txs[i])
	}
}

func TestGeneric_CreditAccountSigns(t *testing.T) {
	text := "Statement Date: 01/31/2024\n01/10/2024 ONLINE PAYMENT -200.00\n01/11/2024 GROCERY 20.00\n01/12/2024 REFUND 15.00 CR\n"
	txs := NewGeneric(discardLogger()).Parse(text, model.AccountCreditCard)

	require.Len(t, txs, 3)
	assert.Equal(t, model.DirectionIncome, txs[0].Direction)
	assert.Equal(t, model.DirectionExpense, txs[1].Direction)
	assert.Equal(t, model.DirectionIncome, txs[2].Direction)
}
