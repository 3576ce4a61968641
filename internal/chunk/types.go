package chunk

// Chunk size defaults, in whitespace-delimited words.
const (
	DefaultChunkSizeWords = 600 // Target maximum words per chunk
	DefaultOverlapWords   = 75  // Words re-seeded into the next chunk
	DefaultMinChunkWords  = 100 // Minimum viable trailing chunk
)

// Method is how a page's text was obtained.
type Method string

const (
	MethodPlain   Method = "plain"
	MethodOCR     Method = "ocr"
	MethodUnknown Method = "unknown"
)

// Metadata is the page- and document-level context attached to a chunk
// at creation time. Fields are fixed; absent values stay at their zero
// value rather than hiding behind a dynamic map.
type Metadata struct {
	PageNumber       int    `json:"page_number"`
	ExtractionMethod Method `json:"extraction_method"`
	DocumentTitle    string `json:"document_title"`
	Filename         string `json:"filename"`
}

// Chunk is a retrievable unit of document text. Immutable once produced.
type Chunk struct {
	// ID is the zero-based position of the chunk within its document.
	ID int `json:"id"`

	// Text is the chunk content, words joined by single spaces.
	Text string `json:"text"`

	// WordCount is the number of whitespace-delimited tokens in Text.
	WordCount int `json:"word_count"`

	Metadata Metadata `json:"metadata"`
}

// Page is one page of extracted document text, the input to ChunkPages.
type Page struct {
	Number int
	Text   string
	Method Method
}
