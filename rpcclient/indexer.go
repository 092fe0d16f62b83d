package rpcclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/herodotus-xyz/data-processor/errs"
	"github.com/herodotus-xyz/data-processor/fetcher"
	"github.com/herodotus-xyz/data-processor/types"
)

// IndexerClient implements fetcher.IndexerClient over the MMR indexer's
// plain JSON REST API: one GET per contiguous header range that returns
// every header's raw RLP and MMR inclusion proof in that range, plus the
// meta record of the MMR they all belong to, so the Fetcher never needs a
// second call to an archive node just to recover header bytes.
type IndexerClient struct {
	baseURL          string
	deployedOnChain  string
	accumulatesChain string
	http             *http.Client
}

// NewIndexerClient builds an IndexerClient against baseURL (e.g.
// "https://indexer.example.com"), scoped to the chain the MMR accumulates
// over. deployedOnChain and accumulatesChain are usually the same chain id
// string; they're kept distinct because the indexer's own query parameters
// are (an aggregator contract can, in principle, live on one chain and
// accumulate another's headers).
func NewIndexerClient(baseURL, deployedOnChain, accumulatesChain string) *IndexerClient {
	return &IndexerClient{
		baseURL:          baseURL,
		deployedOnChain:  deployedOnChain,
		accumulatesChain: accumulatesChain,
		http:             &http.Client{},
	}
}

type indexerProofsResponse struct {
	Data []indexerDataElement `json:"data"`
}

type indexerDataElement struct {
	Meta   indexerMeta    `json:"meta"`
	Proofs []indexerProof `json:"proofs"`
}

type indexerMeta struct {
	MMRId    string   `json:"mmr_id"`
	MMRRoot  string   `json:"mmr_root"`
	MMRSize  uint64   `json:"mmr_size"`
	MMRPeaks []string `json:"mmr_peaks"`
}

type indexerProof struct {
	BlockNumber    uint64   `json:"block_number"`
	RLPBlockHeader string   `json:"rlp_block_header"`
	ElementIndex   uint64   `json:"element_index"`
	SiblingsHashes []string `json:"siblings_hashes"`
}

// HeaderRange fetches every block header in [from, to] together with its
// MMR membership proof, in one round trip. The shared MMR meta is copied
// onto each returned header; its Poseidon root and peak hashes are carried
// verbatim as the indexer rendered them.
func (c *IndexerClient) HeaderRange(ctx context.Context, from, to uint64) ([]fetcher.BlockHeader, error) {
	element, err := c.fetchRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if len(element.Proofs) == 0 {
		return nil, errs.New(errs.IndexerEmpty, "indexer returned no proofs for the requested range")
	}

	mmrID, err := parseHexOrDecimalUint64(element.Meta.MMRId)
	if err != nil {
		return nil, errs.Wrap(errs.Transport, "parse indexer mmr_id", err)
	}
	meta := fetcher.MMRMeta{
		MMRId:    mmrID,
		MMRRoot:  element.Meta.MMRRoot,
		MMRSize:  element.Meta.MMRSize,
		MMRPeaks: element.Meta.MMRPeaks,
	}

	headers := make([]fetcher.BlockHeader, len(element.Proofs))
	for i, p := range element.Proofs {
		headers[i] = fetcher.BlockHeader{
			Block: p.BlockNumber,
			Header: fetcher.HeaderResult{
				RLP:  types.FromHex(p.RLPBlockHeader),
				Meta: meta,
				Proof: fetcher.MMRLeafProof{
					LeafIndex:     p.ElementIndex,
					SiblingHashes: p.SiblingsHashes,
				},
			},
		}
	}
	return headers, nil
}

// fetchRange issues the indexer's range-oriented GET for
// [fromInclusive, toInclusive] and validates that exactly one MMR "data"
// row came back, per the indexer contract: zero rows means no MMR covers
// the range, more than one means the request was ambiguous (it straddled
// more than one tracked MMR).
func (c *IndexerClient) fetchRange(ctx context.Context, fromInclusive, toInclusive uint64) (indexerDataElement, error) {
	q := url.Values{}
	q.Set("deployed_on_chain", c.deployedOnChain)
	q.Set("accumulates_chain", c.accumulatesChain)
	q.Set("hashing_function", "poseidon")
	q.Set("contract_type", "AGGREGATOR")
	q.Set("from_block_number_inclusive", fmt.Sprintf("%d", fromInclusive))
	q.Set("to_block_number_inclusive", fmt.Sprintf("%d", toInclusive))
	q.Set("is_meta_included", "true")
	q.Set("is_whole_tree", "true")
	q.Set("is_rlp_included", "true")
	q.Set("is_pure_rlp", "true")

	reqURL := fmt.Sprintf("%s/proofs?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return indexerDataElement{}, errs.Wrap(errs.Transport, "build indexer request", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return indexerDataElement{}, errs.Wrap(errs.Transport, "indexer request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return indexerDataElement{}, errs.New(errs.Transport, fmt.Sprintf("indexer returned status %d", resp.StatusCode))
	}

	var body indexerProofsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return indexerDataElement{}, errs.Wrap(errs.Transport, "decode indexer response", err)
	}

	switch len(body.Data) {
	case 0:
		return indexerDataElement{}, errs.New(errs.IndexerEmpty, "indexer returned no MMR for the requested range")
	case 1:
		return body.Data[0], nil
	default:
		return indexerDataElement{}, errs.New(errs.IndexerAmbiguous, fmt.Sprintf("indexer returned %d MMRs for the requested range", len(body.Data)))
	}
}

func parseHexOrDecimalUint64(s string) (uint64, error) {
	if len(s) > 1 && (s[0:2] == "0x" || s[0:2] == "0X") {
		return parseHexUint(s)
	}
	var v uint64
	_, err := fmt.Sscanf(s, "%d", &v)
	return v, err
}
