package index

// Posting is one occupation's importance rating for a term. Score is a domain
// importance, not a term frequency, and is used directly as the term weight.
type Posting struct {
	Code  string
	Score float64
}

type PostingList []Posting

type TermEntry struct {
	Term     string
	Postings PostingList
}
