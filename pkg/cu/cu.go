package cu

import (
	"errors"
)

var ErrComputeExceeded = errors.New("compute budget exceeded")

const DefaultComputeBudget = 200000

type ComputeMeter struct {
	computeMeter    uint64
	startingBalance uint64
	exceeded        bool
}

func NewComputeMeter(budget uint64) ComputeMeter {
	return ComputeMeter{computeMeter: budget, startingBalance: budget}
}

func NewComputeMeterDefault() ComputeMeter {
	return NewComputeMeter(DefaultComputeBudget)
}

func (cm *ComputeMeter) Consume(cost uint64) error {
	cm.exceeded = cm.computeMeter < cost
	if cm.exceeded {
		cm.computeMeter = 0
		return ErrComputeExceeded
	}
	cm.computeMeter -= cost
	return nil
}

func (cm *ComputeMeter) Remaining() uint64 {
	return cm.computeMeter
}

func (cm *ComputeMeter) Used() uint64 {
	return cm.startingBalance - cm.computeMeter
}
