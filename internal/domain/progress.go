package domain

// CrawlProgress is the durable crawl state for one target store: every item
// already completed or errored, with the resulting records. The processed set
// only grows within a run and across resumed runs of the same target.
type CrawlProgress struct {
	Target  string         `json:"target"`
	Records []DetailRecord `json:"products"`
	Errors  []ErrorRecord  `json:"errors"`
}

func NewCrawlProgress(target string) *CrawlProgress {
	return &CrawlProgress{Target: target}
}

// Processed returns the set of item IDs that are already completed or errored.
func (p *CrawlProgress) Processed() map[ItemID]struct{} {
	done := make(map[ItemID]struct{}, len(p.Records)+len(p.Errors))
	for _, r := range p.Records {
		done[r.ItemID] = struct{}{}
	}
	for _, e := range p.Errors {
		done[e.ItemID] = struct{}{}
	}
	return done
}

// AddRecord appends a completed record unless the item is already processed.
func (p *CrawlProgress) AddRecord(r DetailRecord) {
	if _, ok := p.Processed()[r.ItemID]; ok {
		return
	}
	p.Records = append(p.Records, r)
}

// AddError appends an error record unless the item is already processed.
func (p *CrawlProgress) AddError(e ErrorRecord) {
	if _, ok := p.Processed()[e.ItemID]; ok {
		return
	}
	p.Errors = append(p.Errors, e)
}
