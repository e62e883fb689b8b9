package dataset

import (
	"fmt"

	"github.com/MimeLyc/dataset-translator/internal/apperr"
)

// Group is the ordered run of records sharing one language value.
type Group struct {
	Language string
	Records  []Record
}

// GroupByField partitions records by the value of field. Groups come back in
// first-seen order and keep the input order inside each group. A record
// without the field is a precondition violation and fails the whole call.
func GroupByField(records []Record, field string) ([]Group, error) {
	index := make(map[string]int)
	var groups []Group

	for i, record := range records {
		raw, ok := record[field]
		if !ok {
			return nil, apperr.Newf(apperr.ErrDataset, "record %d has no field %q", i, field)
		}
		lang, ok := raw.(string)
		if !ok {
			lang = fmt.Sprint(raw)
		}

		pos, seen := index[lang]
		if !seen {
			pos = len(groups)
			index[lang] = pos
			groups = append(groups, Group{Language: lang})
		}
		groups[pos].Records = append(groups[pos].Records, record)
	}

	return groups, nil
}
