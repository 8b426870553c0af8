package statement

import "github.com/aqlanhadi/extrato/extractor/common"

// SelectDayBalances clears the balance of every record except the last one of
// each day. records must already be sorted by date.
func SelectDayBalances(records []common.Record) {
	for i := 0; i < len(records)-1; i++ {
		if sameDay(records[i], records[i+1]) {
			records[i].Balance = nil
		}
	}
}

func sameDay(a, b common.Record) bool {
	if a.Day != nil && b.Day != nil {
		return a.Day.Equal(*b.Day)
	}
	if a.Day == nil && b.Day == nil {
		return a.Date == b.Date
	}
	return false
}
