package contract

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// The deposit contract emits one of two aliases of the same event,
// depending on the deployed version. Both are tried on every poll.
const (
	DepositEvent   = "Deposit"
	DepositedEvent = "Deposited"
)

const depositJSONABI = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "user", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "token", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
    ],
    "name": "Deposit",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "user", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "token", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
    ],
    "name": "Deposited",
    "type": "event"
  }
]`

var DepositABI abi.ABI

func init() {
	var err error
	DepositABI, err = abi.JSON(strings.NewReader(depositJSONABI))
	if err != nil {
		panic(err)
	}
}

type Contract struct {
	Address common.Address
	ABI     abi.ABI
}

func NewDepositContract(addr common.Address) *Contract {
	return &Contract{Address: addr, ABI: DepositABI}
}

// EventQuery builds a logs filter for a single named event over a block range,
// addressed to the monitored contract.
func (c *Contract) EventQuery(event string, fromBlock, toBlock uint64) (ethereum.FilterQuery, error) {
	e, ok := c.ABI.Events[event]
	if !ok {
		return ethereum.FilterQuery{}, fmt.Errorf("contract does not have %s event in its ABI", event)
	}
	return ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{c.Address},
		Topics:    [][]common.Hash{{e.ID}},
	}, nil
}

// ParseLog decodes a log against the contract ABI. It returns an empty event
// name if no ABI event matches the log topics.
func (c *Contract) ParseLog(log *types.Log) (string, map[string]interface{}, error) {
	if len(log.Topics) == 0 {
		return "", nil, fmt.Errorf("cannot process event without topics")
	}
	event := FindMatchingEventABI(c.ABI, log.Topics)
	if event == nil {
		return "", nil, nil
	}
	res, err := DecodeEventLog(event, log.Topics, log.Data)
	if err != nil {
		return "", nil, fmt.Errorf("can't decode event log: %w", err)
	}
	return event.Name, res, nil
}
