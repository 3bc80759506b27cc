// Package governance implements the closed-variant proposal engine
// (component G, §4.H): the proposal envelope, governor membership, the
// parameter/schedule stores each variant mutates, and the Submit/Approve/
// Execute lifecycle with its re-Check-at-execution rule.
package governance

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"wakichain/account"
	"wakichain/asset"
	"wakichain/cache"
	"wakichain/delegate"
	"wakichain/finality"
	"wakichain/ids"
)

// Kind identifies one of the fourteen closed proposal variants. Values are
// stable (used as map keys and persisted in Proposal.Kind) and must never be
// renumbered.
type Kind uint8

const (
	KindSysParam Kind = iota + 1
	KindBpMcList
	KindBpSize
	KindMinerFee
	KindCoinTransfer
	KindAccountPerm
	KindAssetPerm
	KindCdpCoinPair
	KindCdpParam
	KindDexOp
	KindDexQuote
	KindFeedCoinPair
	KindAxcIn
	KindAxcOut
)

func (k Kind) String() string {
	switch k {
	case KindSysParam:
		return "SysParam"
	case KindBpMcList:
		return "BpMcList"
	case KindBpSize:
		return "BpSize"
	case KindMinerFee:
		return "MinerFee"
	case KindCoinTransfer:
		return "CoinTransfer"
	case KindAccountPerm:
		return "AccountPerm"
	case KindAssetPerm:
		return "AssetPerm"
	case KindCdpCoinPair:
		return "CdpCoinPair"
	case KindCdpParam:
		return "CdpParam"
	case KindDexOp:
		return "DexOp"
	case KindDexQuote:
		return "DexQuote"
	case KindFeedCoinPair:
		return "FeedCoinPair"
	case KindAxcIn:
		return "AxcIn"
	case KindAxcOut:
		return "AxcOut"
	default:
		return "Unknown"
	}
}

// OpType is the ENABLE/DISABLE toggle shared by BpMcList, DexOp, DexQuote,
// and FeedCoinPair.
type OpType uint8

const (
	OpNull OpType = iota
	OpEnable
	OpDisable
)

// GovernEffectiveAfterBlockCount is the minimum lead time a BpSize proposal's
// effective_height must give, mirroring GOVERN_EFFECTIVE_AFTER_BLOCK_COUNT.
const GovernEffectiveAfterBlockCount = 3600

// DustAmountThreshold is the minimum CoinTransfer amount, mirroring
// DUST_AMOUNT_THRESHOLD.
const DustAmountThreshold = 100

// Status tracks a proposal through its lifecycle.
type Status uint8

const (
	StatusSubmitted Status = iota
	StatusApproved
	StatusExecuted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSubmitted:
		return "submitted"
	case StatusApproved:
		return "approved"
	case StatusExecuted:
		return "executed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Proposal is the common envelope every variant payload travels in.
type Proposal struct {
	ProposalId     ids.Hash256
	Kind           Kind
	ExpiryHeight   uint64
	Approvals      map[ids.RegId]struct{}
	Status         Status
	EffectiveAt    uint64 // not written by the engine or any variant; BpSize keeps its effective height in the Store
	RawPayload     json.RawMessage
	// CorrelationId ties a proposal's Submit/Approve/Execute log lines
	// together across the node's structured logs, independent of
	// ProposalId (which is a content hash, not chosen for log grepping).
	CorrelationId string
}

// Receipt records a CoinTransfer proposal's effect, mirroring CReceipt with
// ReceiptCode::TRANSFER_PROPOSAL.
type Receipt struct {
	From   ids.UserId
	To     ids.UserId
	Token  ids.TokenSymbol
	Amount uint64
	Code   string
}

const ReceiptCodeTransferProposal = "TRANSFER_PROPOSAL"

// CdpCoinPair is a (bcoin, scoin) collateral pair under CDP governance.
type CdpCoinPair struct {
	BcoinSymbol ids.TokenSymbol
	ScoinSymbol ids.TokenSymbol
}

func (p CdpCoinPair) key() string {
	return string(p.BcoinSymbol) + "/" + string(p.ScoinSymbol)
}

// CdpCoinPairStatus mirrors CdpCoinPairStatus: a pair is never left at NONE
// once governed.
type CdpCoinPairStatus uint8

const (
	CdpCoinPairStatusNone CdpCoinPairStatus = iota
	CdpCoinPairStatusStaged
	CdpCoinPairStatusActive
	CdpCoinPairStatusDisabled
)

// DexOperator tracks whether a DEX operator id is activated.
type DexOperator struct {
	DexId     uint32
	Activated bool
}

// Store persists every piece of state a governance variant reads or writes,
// following the same cache.Layer + JSON-key convention as delegate.Registry.
type Store struct {
	layer *cache.Layer
}

func NewStore(layer *cache.Layer) *Store {
	return &Store{layer: layer}
}

var (
	keyGovernors    = []byte("governance/governors")
	keyProposal     = func(id ids.Hash256) []byte { return append([]byte("governance/proposal/"), id[:]...) }
	keySysParam     = func(name string) []byte { return []byte("governance/sysparam/" + name) }
	keyCdpParam     = func(pair CdpCoinPair, name string) []byte { return []byte("governance/cdpparam/" + pair.key() + "/" + name) }
	keyCdpInterest  = func(pair CdpCoinPair, name string) []byte { return []byte("governance/cdpinterest/" + pair.key() + "/" + name) }
	keyMinerFee     = func(txType, symbol string) []byte { return []byte("governance/minerfee/" + txType + "/" + symbol) }
	keyCdpCoinPair  = func(pair CdpCoinPair) []byte { return []byte("governance/cdpcoinpair/" + pair.key()) }
	keyDexOperator  = func(id uint32) []byte { return []byte(fmt.Sprintf("governance/dexoperator/%d", id)) }
	keyDexQuote     = func(symbol ids.TokenSymbol) []byte { return []byte("governance/dexquote/" + string(symbol)) }
	keyFeedCoinPair = func(feed, quote ids.TokenSymbol) []byte {
		return []byte("governance/feedcoinpair/" + string(feed) + "/" + string(quote))
	}
	keyBpSizeCurrent = []byte("governance/bpsize/current")
	keyBpSizeNew     = []byte("governance/bpsize/scheduled")
	keyAccount       = func(id ids.UserId) []byte { return []byte("governance/account/" + id.String()) }
	keyAsset         = func(symbol ids.TokenSymbol) []byte { return []byte("governance/asset/" + string(symbol)) }
	keyReceipts      = func(id ids.Hash256) []byte { return append([]byte("governance/receipts/"), id[:]...) }
)

func (s *Store) Governors() ([]ids.RegId, error) {
	var governors []ids.RegId
	if _, err := cache.GetJSON(s.layer, keyGovernors, &governors); err != nil {
		return nil, err
	}
	return governors, nil
}

func (s *Store) SetGovernors(governors []ids.RegId) error {
	return cache.PutJSON(s.layer, keyGovernors, governors)
}

// IsGovernor mirrors CSysGovernCache::CheckIsGovernor.
func (s *Store) IsGovernor(regID ids.RegId) (bool, error) {
	governors, err := s.Governors()
	if err != nil {
		return false, err
	}
	for _, g := range governors {
		if g == regID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) Proposal(id ids.Hash256) (*Proposal, bool, error) {
	var p Proposal
	found, err := cache.GetJSON(s.layer, keyProposal(id), &p)
	if err != nil || !found {
		return nil, found, err
	}
	return &p, true, nil
}

func (s *Store) SaveProposal(p *Proposal) error {
	return cache.PutJSON(s.layer, keyProposal(p.ProposalId), p)
}

func (s *Store) SysParam(name string) (string, bool, error) {
	var v string
	found, err := cache.GetJSON(s.layer, keySysParam(name), &v)
	return v, found, err
}

func (s *Store) SetSysParam(name, value string) error {
	return cache.PutJSON(s.layer, keySysParam(name), value)
}

func (s *Store) SetCdpParam(pair CdpCoinPair, name, value string) error {
	return cache.PutJSON(s.layer, keyCdpParam(pair, name), value)
}

func (s *Store) SetCdpInterestParam(pair CdpCoinPair, name string, height uint64, value string) error {
	return cache.PutJSON(s.layer, keyCdpInterest(pair, name), struct {
		Height uint64
		Value  string
	}{Height: height, Value: value})
}

func (s *Store) SetMinerFee(txType, symbol string, amount uint64) error {
	return cache.PutJSON(s.layer, keyMinerFee(txType, symbol), amount)
}

func (s *Store) CdpCoinPairStatus(pair CdpCoinPair) (CdpCoinPairStatus, error) {
	var status CdpCoinPairStatus
	found, err := cache.GetJSON(s.layer, keyCdpCoinPair(pair), &status)
	if err != nil || !found {
		return CdpCoinPairStatusNone, err
	}
	return status, nil
}

func (s *Store) SetCdpCoinPairStatus(pair CdpCoinPair, status CdpCoinPairStatus) error {
	return cache.PutJSON(s.layer, keyCdpCoinPair(pair), status)
}

func (s *Store) DexOperator(id uint32) (DexOperator, bool, error) {
	var op DexOperator
	found, err := cache.GetJSON(s.layer, keyDexOperator(id), &op)
	return op, found, err
}

func (s *Store) SetDexOperator(op DexOperator) error {
	return cache.PutJSON(s.layer, keyDexOperator(op.DexId), op)
}

func (s *Store) HasDexQuoteCoin(symbol ids.TokenSymbol) (bool, error) {
	var present bool
	found, err := cache.GetJSON(s.layer, keyDexQuote(symbol), &present)
	return found, err
}

func (s *Store) AddDexQuoteCoin(symbol ids.TokenSymbol) error {
	return cache.PutJSON(s.layer, keyDexQuote(symbol), true)
}

func (s *Store) EraseDexQuoteCoin(symbol ids.TokenSymbol) {
	s.layer.Erase(keyDexQuote(symbol))
}

func (s *Store) HasFeedCoinPair(feed, quote ids.TokenSymbol) (bool, error) {
	var present bool
	found, err := cache.GetJSON(s.layer, keyFeedCoinPair(feed, quote), &present)
	return found, err
}

func (s *Store) AddFeedCoinPair(feed, quote ids.TokenSymbol) error {
	return cache.PutJSON(s.layer, keyFeedCoinPair(feed, quote), true)
}

func (s *Store) EraseFeedCoinPair(feed, quote ids.TokenSymbol) {
	s.layer.Erase(keyFeedCoinPair(feed, quote))
}

func (s *Store) SetCurrentTotalBpsSize(n int) error {
	return cache.PutJSON(s.layer, keyBpSizeCurrent, n)
}

func (s *Store) SetNewTotalBpsSize(n int, effectiveHeight uint64) error {
	return cache.PutJSON(s.layer, keyBpSizeNew, struct {
		Size           int
		EffectiveHeight uint64
	}{Size: n, EffectiveHeight: effectiveHeight})
}

func (s *Store) Account(id ids.UserId) (*account.Account, bool, error) {
	var a account.Account
	found, err := cache.GetJSON(s.layer, keyAccount(id), &a)
	if err != nil || !found {
		return nil, found, err
	}
	return &a, true, nil
}

func (s *Store) SetAccount(id ids.UserId, a *account.Account) error {
	return cache.PutJSON(s.layer, keyAccount(id), a)
}

func (s *Store) Asset(symbol ids.TokenSymbol) (*asset.Asset, bool, error) {
	var a asset.Asset
	found, err := cache.GetJSON(s.layer, keyAsset(symbol), &a)
	if err != nil || !found {
		return nil, found, err
	}
	return &a, true, nil
}

func (s *Store) SetAsset(a *asset.Asset) error {
	return cache.PutJSON(s.layer, keyAsset(a.Symbol), a)
}

func (s *Store) SetReceipts(id ids.Hash256, receipts []Receipt) error {
	return cache.PutJSON(s.layer, keyReceipts(id), receipts)
}

// Context is the per-proposal environment a variant's Check/Execute runs
// against: the current height (for effective-height and expiry checks) and
// the Store to read and mutate.
type Context struct {
	Height     uint64
	Store      *Store
	ProposalId *ids.Hash256
}

// Engine drives the Submit -> Approve -> Execute lifecycle described in
// spec §4.H and the envelope in §3: a proposal must pass Check both at
// submission and again at execution, approvals are tallied against the
// governor set, and quorum uses the same n - n/3 arithmetic the finality
// rounds use (see DESIGN.md for why: the source's GetGovernorApprovalMinCount
// has no available definition, and the quorum formula given anywhere in this
// system is delegate.MinConfirmBpCount).
type Engine struct {
	store  *Store
	logger *slog.Logger
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger overrides the Engine's default logger (slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func NewEngine(store *Store, opts ...Option) *Engine {
	e := &Engine{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Proposal exposes the stored proposal for read-only callers (the ops
// status surface in particular), without handing out the Store itself.
func (e *Engine) Proposal(id ids.Hash256) (*Proposal, bool, error) {
	return e.store.Proposal(id)
}

// Governors exposes the current governor set for read-only callers.
func (e *Engine) Governors() ([]ids.RegId, error) {
	return e.store.Governors()
}

// Quorum returns the minimum number of distinct governor approvals a
// proposal of any kind needs, given the current governor count.
func (e *Engine) Quorum() (int, error) {
	governors, err := e.store.Governors()
	if err != nil {
		return 0, err
	}
	return delegate.MinConfirmBpCount(len(governors)), nil
}

// Submit runs Check against payload and, if it passes, stores a new
// Submitted proposal.
func (e *Engine) Submit(id ids.Hash256, kind Kind, expiryHeight uint64, payload any, height uint64) *finality.ValidationState {
	handler, ok := handlers[kind]
	if !ok {
		return invalid(100, "unknown-kind", kind.String())
	}
	ctx := &Context{Height: height, Store: e.store}
	if state := handler.Check(ctx, payload); !state.IsValid() {
		return state
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return invalid(10, "encode-error", err.Error())
	}
	p := &Proposal{
		ProposalId:    id,
		Kind:          kind,
		ExpiryHeight:  expiryHeight,
		Approvals:     make(map[ids.RegId]struct{}),
		Status:        StatusSubmitted,
		RawPayload:    raw,
		CorrelationId: uuid.NewString(),
	}
	if err := e.store.SaveProposal(p); err != nil {
		return invalid(10, "store-error", err.Error())
	}
	e.logger.Info("proposal submitted", "proposal_id", id.String(), "kind", kind.String(), "correlation_id", p.CorrelationId)
	return finality.Valid()
}

// Approve records governor's approval of id, promoting the proposal to
// Approved once the approval count reaches quorum. A non-governor regid or
// a proposal outside StatusSubmitted is rejected.
func (e *Engine) Approve(id ids.Hash256, governor ids.RegId) *finality.ValidationState {
	p, found, err := e.store.Proposal(id)
	if err != nil {
		return invalid(10, "store-error", err.Error())
	}
	if !found {
		return invalid(10, "unknown-proposal", id.String())
	}
	if p.Status != StatusSubmitted {
		return invalid(10, "not-submitted", p.Status.String())
	}
	isGovernor, err := e.store.IsGovernor(governor)
	if err != nil {
		return invalid(10, "store-error", err.Error())
	}
	if !isGovernor {
		return invalid(20, "not-a-governor", governor.String())
	}
	p.Approvals[governor] = struct{}{}
	quorum, err := e.Quorum()
	if err != nil {
		return invalid(10, "store-error", err.Error())
	}
	if quorum > 0 && len(p.Approvals) >= quorum {
		p.Status = StatusApproved
		e.logger.Info("proposal reached quorum", "proposal_id", id.String(), "approvals", len(p.Approvals), "quorum", quorum)
	}
	if err := e.store.SaveProposal(p); err != nil {
		return invalid(10, "store-error", err.Error())
	}
	return finality.Valid()
}

// Execute re-runs Check and then Execute for an Approved proposal inside a
// child cache layer, committing on success and discarding on failure. A
// failed execution is marked Failed and is never retried, per §4.H.
func (e *Engine) Execute(id ids.Hash256, height uint64, layer *cache.Layer) *finality.ValidationState {
	p, found, err := e.store.Proposal(id)
	if err != nil {
		return invalid(10, "store-error", err.Error())
	}
	if !found {
		return invalid(10, "unknown-proposal", id.String())
	}
	if p.Status != StatusApproved {
		return invalid(10, "not-approved", p.Status.String())
	}
	handler, ok := handlers[p.Kind]
	if !ok {
		return invalid(100, "unknown-kind", p.Kind.String())
	}
	payload, err := decodePayload(p.Kind, p.RawPayload)
	if err != nil {
		return invalid(10, "decode-error", err.Error())
	}

	child := layer.Child()
	childStore := NewStore(child)
	ctx := &Context{Height: height, Store: childStore, ProposalId: &id}

	if state := handler.Check(ctx, payload); !state.IsValid() {
		child.Rollback()
		p.Status = StatusFailed
		if err := e.store.SaveProposal(p); err != nil {
			return invalid(10, "store-error", err.Error())
		}
		e.logger.Warn("proposal execution re-check failed", "proposal_id", id.String(), "reason", state.Reason())
		return state
	}
	state := handler.Execute(ctx, payload)
	if !state.IsValid() {
		child.Rollback()
		p.Status = StatusFailed
		if err := e.store.SaveProposal(p); err != nil {
			return invalid(10, "store-error", err.Error())
		}
		e.logger.Warn("proposal execute failed", "proposal_id", id.String(), "reason", state.Reason())
		return state
	}
	if err := child.Commit(); err != nil {
		p.Status = StatusFailed
		e.store.SaveProposal(p)
		e.logger.Error("proposal commit failed", "proposal_id", id.String(), "error", err.Error())
		return invalid(10, "commit-error", err.Error())
	}
	p.Status = StatusExecuted
	if err := e.store.SaveProposal(p); err != nil {
		return invalid(10, "store-error", err.Error())
	}
	e.logger.Info("proposal executed", "proposal_id", id.String(), "kind", p.Kind.String())
	return finality.Valid()
}

func invalid(dos int, reason, message string) *finality.ValidationState {
	state := finality.Valid()
	state.Invalid(dos, reason, message)
	return state
}
