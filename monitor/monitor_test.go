package monitor_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/ethwatch/deposit-monitor/contract"
	"github.com/ethwatch/deposit-monitor/logging"
	"github.com/ethwatch/deposit-monitor/monitor"
)

type fakeClient struct {
	heights  []uint64
	calls    int
	headErr  error
	queries  []ethereum.FilterQuery
	logs     map[common.Hash][]types.Log
	failures map[common.Hash]error
}

func (c *fakeClient) BlockNumber(_ context.Context) (uint64, error) {
	if c.headErr != nil {
		return 0, c.headErr
	}
	h := c.heights[c.calls]
	if c.calls < len(c.heights)-1 {
		c.calls++
	}
	return h, nil
}

func (c *fakeClient) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c.queries = append(c.queries, q)
	topic := q.Topics[0][0]
	if err := c.failures[topic]; err != nil {
		return nil, err
	}
	return c.logs[topic], nil
}

type fakeNotifier struct {
	err      error
	messages []string
}

func (n *fakeNotifier) SendMessage(_ context.Context, text string) error {
	if n.err != nil {
		return n.err
	}
	n.messages = append(n.messages, text)
	return nil
}

func newTestMonitor(client *fakeClient, notifier *fakeNotifier) *monitor.DepositMonitor {
	return monitor.NewDepositMonitor(logging.New(logrus.DebugLevel), client, notifier)
}

func eventID(t *testing.T, event string) common.Hash {
	t.Helper()
	e, ok := contract.DepositABI.Events[event]
	require.True(t, ok)
	return e.ID
}

func depositLog(t *testing.T, event string, user, token common.Address, amount *big.Int, blockNumber uint64) types.Log {
	t.Helper()
	e, ok := contract.DepositABI.Events[event]
	require.True(t, ok)
	data, err := e.Inputs.NonIndexed().Pack(amount)
	require.NoError(t, err)
	return types.Log{
		Address:     monitor.TargetContractAddress,
		Topics:      []common.Hash{e.ID, user.Hash(), token.Hash()},
		Data:        data,
		BlockNumber: blockNumber,
		TxHash:      common.HexToHash("0x00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"),
	}
}

func TestPollWindowsArePartitioned(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := &fakeClient{heights: []uint64{100, 105, 112}}
	notifier := &fakeNotifier{}
	m := newTestMonitor(client, notifier)

	require.NoError(t, m.Initialize(ctx))
	require.Equal(t, uint64(100), m.LastBlock())

	require.NoError(t, m.PollOnce(ctx))
	require.NoError(t, m.PollOnce(ctx))

	var ranges [][2]uint64
	for _, q := range client.queries {
		ranges = append(ranges, [2]uint64{q.FromBlock.Uint64(), q.ToBlock.Uint64()})
	}
	// two event signatures per cycle, same contiguous window for both
	require.Equal(t, [][2]uint64{
		{101, 105}, {101, 105},
		{106, 112}, {106, 112},
	}, ranges)
	require.Equal(t, uint64(112), m.LastBlock())
}

func TestPollNoNewBlocks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := &fakeClient{heights: []uint64{100, 100}}
	m := newTestMonitor(client, &fakeNotifier{})

	require.NoError(t, m.Initialize(ctx))
	require.NoError(t, m.PollOnce(ctx))

	require.Empty(t, client.queries)
	require.Equal(t, uint64(100), m.LastBlock())
}

func TestDepositAlertSent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	user := common.HexToAddress("0x00000000000000000000000000000000000000Aa")
	lg := depositLog(t, contract.DepositEvent, user, monitor.USDTTokenAddress, big.NewInt(1_500_000), 103)
	client := &fakeClient{
		heights: []uint64{100, 105},
		logs: map[common.Hash][]types.Log{
			eventID(t, contract.DepositEvent): {lg},
		},
	}
	notifier := &fakeNotifier{}
	m := newTestMonitor(client, notifier)

	require.NoError(t, m.Initialize(ctx))
	require.NoError(t, m.PollOnce(ctx))

	require.Len(t, notifier.messages, 2) // startup + deposit
	alert := notifier.messages[1]
	require.Contains(t, alert, "1.50 USDT")
	require.Contains(t, alert, user.Hex())
	require.Contains(t, alert, "Block: 103")
	require.Contains(t, alert, "https://etherscan.io/tx/"+lg.TxHash.Hex())
}

func TestZeroAmountSuppressed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	user := common.HexToAddress("0x00000000000000000000000000000000000000Aa")
	lg := depositLog(t, contract.DepositEvent, user, monitor.USDTTokenAddress, big.NewInt(0), 103)
	client := &fakeClient{
		heights: []uint64{100, 105},
		logs: map[common.Hash][]types.Log{
			eventID(t, contract.DepositEvent): {lg},
		},
	}
	notifier := &fakeNotifier{}
	m := newTestMonitor(client, notifier)

	require.NoError(t, m.Initialize(ctx))
	require.NoError(t, m.PollOnce(ctx))

	require.Len(t, notifier.messages, 1) // startup only
	require.Equal(t, uint64(105), m.LastBlock())
}

func TestForeignTokenSuppressed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	user := common.HexToAddress("0x00000000000000000000000000000000000000Aa")
	otherToken := common.HexToAddress("0x00000000000000000000000000000000000000bB")
	lg := depositLog(t, contract.DepositEvent, user, otherToken, big.NewInt(5_000_000), 103)
	client := &fakeClient{
		heights: []uint64{100, 105},
		logs: map[common.Hash][]types.Log{
			eventID(t, contract.DepositEvent): {lg},
		},
	}
	notifier := &fakeNotifier{}
	m := newTestMonitor(client, notifier)

	require.NoError(t, m.Initialize(ctx))
	require.NoError(t, m.PollOnce(ctx))

	require.Len(t, notifier.messages, 1)
}

func TestSignatureQueryFailureIsolated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	user := common.HexToAddress("0x00000000000000000000000000000000000000Aa")
	lg := depositLog(t, contract.DepositedEvent, user, monitor.USDTTokenAddress, big.NewInt(1_500_000), 103)
	client := &fakeClient{
		heights: []uint64{100, 105},
		logs: map[common.Hash][]types.Log{
			eventID(t, contract.DepositedEvent): {lg},
		},
		failures: map[common.Hash]error{
			eventID(t, contract.DepositEvent): errors.New("filter not supported"),
		},
	}
	notifier := &fakeNotifier{}
	m := newTestMonitor(client, notifier)

	require.NoError(t, m.Initialize(ctx))
	require.NoError(t, m.PollOnce(ctx))

	require.Len(t, notifier.messages, 2)
	require.Equal(t, uint64(105), m.LastBlock())
}

func TestCursorReadsAreSafeDuringPoll(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	heights := make([]uint64, 0, 51)
	for h := uint64(100); h <= 150; h++ {
		heights = append(heights, h)
	}
	client := &fakeClient{heights: heights}
	m := newTestMonitor(client, &fakeNotifier{})
	require.NoError(t, m.Initialize(ctx))

	// concurrent reader, the way the health endpoint observes the cursor
	done := make(chan struct{})
	go func() {
		defer close(done)
		var prev uint64
		for i := 0; i < 10000; i++ {
			cur := m.LastBlock()
			if cur < prev {
				t.Errorf("cursor moved backwards: %d -> %d", prev, cur)
				return
			}
			prev = cur
		}
	}()

	for i := 0; i < 50; i++ {
		require.NoError(t, m.PollOnce(ctx))
	}
	<-done
	require.Equal(t, uint64(150), m.LastBlock())
}

//nolint:paralleltest // reads shared metric counters
func TestStartupNotificationSuccessRecorded(t *testing.T) {
	before := testutil.ToFloat64(monitor.Notifications.WithLabelValues("ok"))

	client := &fakeClient{heights: []uint64{100}}
	notifier := &fakeNotifier{}
	m := newTestMonitor(client, notifier)

	require.NoError(t, m.Initialize(context.Background()))
	require.Len(t, notifier.messages, 1)
	require.Equal(t, before+1, testutil.ToFloat64(monitor.Notifications.WithLabelValues("ok")))
}

func TestStartupNotificationFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := &fakeClient{heights: []uint64{100, 100}}
	m := newTestMonitor(client, &fakeNotifier{err: errors.New("chat not found")})

	require.NoError(t, m.Initialize(ctx))
	require.Equal(t, uint64(100), m.LastBlock())
	require.NoError(t, m.PollOnce(ctx))
}

func TestInitializeFailsWithoutProvider(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := &fakeClient{headErr: errors.New("connection refused")}
	m := newTestMonitor(client, &fakeNotifier{})

	require.Error(t, m.Initialize(ctx))
}

func TestHeadQueryFailureKeepsCursor(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := &fakeClient{heights: []uint64{100}}
	m := newTestMonitor(client, &fakeNotifier{})

	require.NoError(t, m.Initialize(ctx))
	client.headErr = errors.New("connection reset")

	require.Error(t, m.PollOnce(ctx))
	require.Equal(t, uint64(100), m.LastBlock())
}

func TestDecodeFailureDoesNotStopBatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	user := common.HexToAddress("0x00000000000000000000000000000000000000Aa")
	good := depositLog(t, contract.DepositEvent, user, monitor.USDTTokenAddress, big.NewInt(2_000_000), 104)
	bad := good
	bad.Data = []byte{0x01} // truncated payload
	client := &fakeClient{
		heights: []uint64{100, 105},
		logs: map[common.Hash][]types.Log{
			eventID(t, contract.DepositEvent): {bad, good},
		},
	}
	notifier := &fakeNotifier{}
	m := newTestMonitor(client, notifier)

	require.NoError(t, m.Initialize(ctx))
	require.NoError(t, m.PollOnce(ctx))

	require.Len(t, notifier.messages, 2)
	require.Contains(t, notifier.messages[1], "2.00 USDT")
	require.Equal(t, uint64(105), m.LastBlock())
}
