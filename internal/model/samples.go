package model

import (
	"fmt"
	"sort"
)

// samples are ready-made inputs for trying the service out.
var samples = map[string]TransactionInput{
	"legitimate": {
		Step:           1,
		Type:           TypePayment,
		Amount:         50.00,
		OldBalanceOrg:  1000.00,
		NewBalanceOrig: 950.00,
		OldBalanceDest: 2000.00,
		NewBalanceDest: 2050.00,
	},
	"suspicious": {
		Step:           1,
		Type:           TypeTransfer,
		Amount:         500000.00,
		OldBalanceOrg:  500000.00,
		NewBalanceOrig: 0,
		OldBalanceDest: 0,
		NewBalanceDest: 500000.00,
	},
}

// Sample returns the named sample transaction.
func Sample(name string) (TransactionInput, error) {
	input, ok := samples[name]
	if !ok {
		return TransactionInput{}, fmt.Errorf("unknown sample %q (available: %v)", name, SampleNames())
	}
	return input, nil
}

// SampleNames lists the available sample names in sorted order.
func SampleNames() []string {
	names := make([]string, 0, len(samples))
	for name := range samples {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
