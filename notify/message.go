package notify

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// USDT uses a six-decimal fixed-point denomination.
const tokenDecimals = 6

const (
	txExplorerURL = "https://etherscan.io/tx/"
	timeLayout    = "2006-01-02 15:04:05"
)

// TokenAmount converts a raw smallest-unit amount into its decimal display value.
func TokenAmount(raw *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(raw, -tokenDecimals)
}

// FormatAmount renders an amount with exactly two fractional digits
// and thousands separators, e.g. 1234.5 -> "1,234.50".
func FormatAmount(amount decimal.Decimal) string {
	fixed := amount.StringFixed(2)
	intPart, fracPart, _ := strings.Cut(fixed, ".")
	if len(intPart) <= 3 {
		return fixed
	}
	var b strings.Builder
	head := len(intPart) % 3
	if head > 0 {
		b.WriteString(intPart[:head])
	}
	for i := head; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	return b.String() + "." + fracPart
}

func BuildDepositAlert(user common.Address, amount decimal.Decimal, blockNumber uint64, txHash common.Hash) string {
	return fmt.Sprintf(
		"💰 <b>New USDT deposit</b>\n"+
			"👤 User: <code>%s</code>\n"+
			"💵 Amount: %s USDT\n"+
			"📦 Block: %d\n"+
			"🔗 <a href=\"%s%s\">View transaction</a>\n"+
			"⏰ %s",
		user, FormatAmount(amount), blockNumber,
		txExplorerURL, txHash, time.Now().Format(timeLayout),
	)
}

func BuildStartupMessage(head uint64, contractAddr, tokenAddr common.Address, interval time.Duration) string {
	return fmt.Sprintf(
		"🚀 <b>Deposit monitor started</b>\n"+
			"📦 Current block: %d\n"+
			"📜 Contract: <code>%s</code>\n"+
			"🪙 Token: <code>%s</code>\n"+
			"⏱ Poll interval: %s",
		head, contractAddr, tokenAddr, interval,
	)
}
