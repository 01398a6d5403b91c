package monitor

import (
	"context"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/ethwatch/deposit-monitor/contract"
	"github.com/ethwatch/deposit-monitor/ethclient"
	"github.com/ethwatch/deposit-monitor/logging"
	"github.com/ethwatch/deposit-monitor/notify"
	"github.com/ethwatch/deposit-monitor/utils"
)

const DefaultPollInterval = 15 * time.Second

// Fixed deployment parameters, not configurable in the current design.
var (
	TargetContractAddress = common.HexToAddress("0x6B29b25c5e52E46deBb27D5e9d4a47Bd57dD6A21")
	USDTTokenAddress      = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
)

var depositEventNames = []string{contract.DepositEvent, contract.DepositedEvent}

// DepositMonitor tracks an in-memory block cursor and forwards matching
// deposit events as notifications. The cursor is initialized to the current
// chain head and is never persisted, so deposits made while the process is
// down are skipped.
type DepositMonitor struct {
	logger    logging.Logger
	client    ethclient.Client
	contract  *contract.Contract
	notifier  notify.Notifier
	interval  time.Duration
	lastBlock atomic.Uint64
	inFlight  atomic.Bool
}

func NewDepositMonitor(logger logging.Logger, client ethclient.Client, notifier notify.Notifier) *DepositMonitor {
	return &DepositMonitor{
		logger:   logger,
		client:   client,
		contract: contract.NewDepositContract(TargetContractAddress),
		notifier: notifier,
		interval: DefaultPollInterval,
	}
}

// LastBlock returns the highest block height already scanned. The cursor is
// written only by the poller, but the ops endpoint reads it from HTTP-server
// goroutines, hence the atomic.
func (m *DepositMonitor) LastBlock() uint64 {
	return m.lastBlock.Load()
}

// Initialize baselines the cursor to the current chain head and announces the
// start in the notification channel. Only the height query failure is fatal;
// a rejected startup notification is logged and ignored.
func (m *DepositMonitor) Initialize(ctx context.Context) error {
	head, err := m.client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("can't fetch initial block number: %w", err)
	}
	m.lastBlock.Store(head)
	LatestHeadBlock.Set(float64(head))
	LatestProcessedBlock.Set(float64(head))
	m.logger.WithFields(logrus.Fields{
		"head_block": head,
		"contract":   m.contract.Address,
		"token":      USDTTokenAddress,
		"interval":   m.interval,
	}).Info("initialized deposit monitor")

	msg := notify.BuildStartupMessage(head, m.contract.Address, USDTTokenAddress, m.interval)
	if err := m.notifier.SendMessage(ctx, msg); err != nil {
		Notifications.WithLabelValues("error").Inc()
		m.logger.WithError(err).Warn("can't send startup notification")
	} else {
		Notifications.WithLabelValues("ok").Inc()
	}
	return nil
}

// Start runs the fixed-interval poll loop until ctx is cancelled. A tick is
// skipped when the previous cycle is still running.
func (m *DepositMonitor) Start(ctx context.Context) {
	m.logger.Info("starting deposit poller")
	for {
		if utils.ContextSleep(ctx, m.interval) == nil {
			return
		}
		if !m.inFlight.CompareAndSwap(false, true) {
			SkippedTicks.Inc()
			m.logger.Debug("previous poll cycle is still running, skipping tick")
			continue
		}
		if err := m.PollOnce(ctx); err != nil {
			PollCycleErrors.Inc()
			m.logger.WithError(err).Error("poll cycle failed")
		}
		m.inFlight.Store(false)
	}
}

// PollOnce advances the cursor by one window. Each event signature is queried
// independently, so one failing query does not discard the other's results.
// The cursor moves to the new head after processing regardless of per-event
// outcomes; it stays unchanged when the head query itself fails.
func (m *DepositMonitor) PollOnce(ctx context.Context) error {
	head, err := m.client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("can't fetch latest block number: %w", err)
	}
	LatestHeadBlock.Set(float64(head))
	last := m.lastBlock.Load()
	if head <= last {
		return nil
	}
	fromBlock, toBlock := last+1, head

	var logs []types.Log
	for _, event := range depositEventNames {
		q, err := m.contract.EventQuery(event, fromBlock, toBlock)
		if err != nil {
			m.logger.WithError(err).WithField("event", event).Warn("skipping unknown event signature")
			continue
		}
		batch, err := m.client.FilterLogs(ctx, q)
		if err != nil {
			m.logger.WithError(err).WithFields(logrus.Fields{
				"event":      event,
				"from_block": fromBlock,
				"to_block":   toBlock,
			}).Error("failed logs query for event signature")
			continue
		}
		logs = append(logs, batch...)
	}
	m.logger.WithFields(logrus.Fields{
		"count":      len(logs),
		"from_block": fromBlock,
		"to_block":   toBlock,
	}).Debug("fetched logs in range")

	for i := range logs {
		if err := m.handleLog(ctx, &logs[i]); err != nil {
			m.logger.WithError(err).WithFields(logrus.Fields{
				"tx_hash":   logs[i].TxHash,
				"log_index": logs[i].Index,
				"topics":    logs[i].Topics,
				"data":      hexutil.Encode(logs[i].Data),
			}).Error("can't handle deposit log")
		}
	}

	m.lastBlock.Store(head)
	LatestProcessedBlock.Set(float64(head))
	return nil
}

func (m *DepositMonitor) handleLog(ctx context.Context, log *types.Log) error {
	event, values, err := m.contract.ParseLog(log)
	if err != nil {
		return err
	}
	if event == "" {
		m.logger.WithField("topic0", log.Topics[0]).Warn("received unknown event")
		return nil
	}
	user, ok := values["user"].(common.Address)
	if !ok {
		return fmt.Errorf("%s event has no user address argument", event)
	}
	token, ok := values["token"].(common.Address)
	if !ok {
		return fmt.Errorf("%s event has no token address argument", event)
	}
	amount, ok := values["amount"].(*big.Int)
	if !ok {
		return fmt.Errorf("%s event has no amount argument", event)
	}

	// Address equality is byte equality, so mixed-case hex in the
	// configured address cannot cause a mismatch.
	if token != USDTTokenAddress {
		m.logger.WithFields(logrus.Fields{
			"token":   token,
			"tx_hash": log.TxHash,
		}).Debug("skipping deposit of foreign token")
		return nil
	}
	DepositEvents.Inc()

	display := notify.TokenAmount(amount)
	if !display.IsPositive() {
		m.logger.WithField("tx_hash", log.TxHash).Debug("skipping zero-amount deposit")
		return nil
	}

	msg := notify.BuildDepositAlert(user, display, log.BlockNumber, log.TxHash)
	if err := m.notifier.SendMessage(ctx, msg); err != nil {
		Notifications.WithLabelValues("error").Inc()
		return fmt.Errorf("can't send deposit notification: %w", err)
	}
	Notifications.WithLabelValues("ok").Inc()
	m.logger.WithFields(logrus.Fields{
		"event":        event,
		"user":         user,
		"amount":       display,
		"block_number": log.BlockNumber,
		"tx_hash":      log.TxHash,
	}).Info("sent deposit alert")
	return nil
}
