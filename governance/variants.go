package governance

import (
	"encoding/json"
	"fmt"

	"wakichain/account"
	"wakichain/asset"
	"wakichain/finality"
	"wakichain/ids"
)

// handler is the (Check, Execute) pair every proposal kind dispatches
// through, the Go counterpart of the original's per-variant
// CheckProposal/ExecuteProposal pair (§4.H).
type handler interface {
	Check(ctx *Context, payload any) *finality.ValidationState
	Execute(ctx *Context, payload any) *finality.ValidationState
}

var handlers = map[Kind]handler{
	KindSysParam:     sysParamHandler{},
	KindBpMcList:     bpMcListHandler{},
	KindBpSize:       bpSizeHandler{},
	KindMinerFee:     minerFeeHandler{},
	KindCoinTransfer: coinTransferHandler{},
	KindAccountPerm:  accountPermHandler{},
	KindAssetPerm:    assetPermHandler{},
	KindCdpCoinPair:  cdpCoinPairHandler{},
	KindCdpParam:     cdpParamHandler{},
	KindDexOp:        dexOpHandler{},
	KindDexQuote:     dexQuoteHandler{},
	KindFeedCoinPair: feedCoinPairHandler{},
	KindAxcIn:        axcInHandler{},
	KindAxcOut:       axcOutHandler{},
}

func decodePayload(kind Kind, raw json.RawMessage) (any, error) {
	var payload any
	switch kind {
	case KindSysParam:
		payload = &SysParamPayload{}
	case KindBpMcList:
		payload = &BpMcListPayload{}
	case KindBpSize:
		payload = &BpSizePayload{}
	case KindMinerFee:
		payload = &MinerFeePayload{}
	case KindCoinTransfer:
		payload = &CoinTransferPayload{}
	case KindAccountPerm:
		payload = &AccountPermPayload{}
	case KindAssetPerm:
		payload = &AssetPermPayload{}
	case KindCdpCoinPair:
		payload = &CdpCoinPairPayload{}
	case KindCdpParam:
		payload = &CdpParamPayload{}
	case KindDexOp:
		payload = &DexOpPayload{}
	case KindDexQuote:
		payload = &DexQuotePayload{}
	case KindFeedCoinPair:
		payload = &FeedCoinPairPayload{}
	case KindAxcIn:
		payload = &AxcInPayload{}
	case KindAxcOut:
		payload = &AxcOutPayload{}
	default:
		return nil, fmt.Errorf("governance: unknown proposal kind %d", kind)
	}
	if err := json.Unmarshal(raw, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// --- SysParam ---

// SysParamTable declares the known sys-param names and their accepted value
// range, grounded on the teacher's PolicyDelta fields (Governance, Slashing,
// Mempool, Blocks tunables) rather than the original source's full CDP/DEX
// parameter surface, which this system does not otherwise model.
var SysParamTable = map[string]func(value string) error{
	"governance.quorum_bps":          basisPointsRange,
	"governance.pass_threshold_bps":  basisPointsRange,
	"governance.voting_period_secs":  positiveUint,
	"slashing.min_window_secs":       positiveUint,
	"slashing.max_window_secs":       positiveUint,
	"mempool.max_bytes":              positiveUint,
	"blocks.max_txs":                 positiveUint,
}

func basisPointsRange(value string) error {
	n, err := parseUint(value)
	if err != nil {
		return err
	}
	if n > 10000 {
		return fmt.Errorf("governance: basis-points value %d exceeds 10000", n)
	}
	return nil
}

func positiveUint(value string) error {
	n, err := parseUint(value)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("governance: value must be positive")
	}
	return nil
}

func parseUint(value string) (uint64, error) {
	var n uint64
	_, err := fmt.Sscanf(value, "%d", &n)
	if err != nil {
		return 0, fmt.Errorf("governance: %q is not a number", value)
	}
	return n, nil
}

// SysParamPayload sets one or more tunable parameters, mirroring
// CGovSysParamProposal.
type SysParamPayload struct {
	ParamValues map[string]string
}

type sysParamHandler struct{}

func (sysParamHandler) Check(ctx *Context, payload any) *finality.ValidationState {
	p := payload.(*SysParamPayload)
	if len(p.ParamValues) == 0 {
		return invalid(100, "params-empty", "param list is empty")
	}
	for name, value := range p.ParamValues {
		validator, ok := SysParamTable[name]
		if !ok {
			return invalid(100, "params-error", fmt.Sprintf("parameter %q is not in the sys params list", name))
		}
		if err := validator(value); err != nil {
			return invalid(100, "params-range-error", err.Error())
		}
	}
	return finality.Valid()
}

func (sysParamHandler) Execute(ctx *Context, payload any) *finality.ValidationState {
	p := payload.(*SysParamPayload)
	for name, value := range p.ParamValues {
		if _, ok := SysParamTable[name]; !ok {
			return invalid(10, "params-error", name)
		}
		if err := ctx.Store.SetSysParam(name, value); err != nil {
			return invalid(10, "store-error", err.Error())
		}
	}
	return finality.Valid()
}

// --- BpMcList ---

// BpMcListPayload adds or removes a governor, mirroring CGovBpMcListProposal.
type BpMcListPayload struct {
	Op           OpType
	GovernorRegId ids.RegId
}

type bpMcListHandler struct{}

func (bpMcListHandler) Check(ctx *Context, payload any) *finality.ValidationState {
	p := payload.(*BpMcListPayload)
	if p.Op != OpEnable && p.Op != OpDisable {
		return invalid(100, "operate-type-illegal", "op must be ENABLE or DISABLE")
	}
	_, found, err := ctx.Store.Account(ids.FromRegId(p.GovernorRegId))
	if err != nil {
		return invalid(10, "store-error", err.Error())
	}
	if !found {
		return invalid(100, "governor-not-exist", p.GovernorRegId.String())
	}
	if p.Op == OpDisable {
		isGovernor, err := ctx.Store.IsGovernor(p.GovernorRegId)
		if err != nil {
			return invalid(10, "store-error", err.Error())
		}
		if !isGovernor {
			return invalid(100, "regid-not-governor", p.GovernorRegId.String())
		}
	}
	return finality.Valid()
}

func (bpMcListHandler) Execute(ctx *Context, payload any) *finality.ValidationState {
	p := payload.(*BpMcListPayload)
	governors, err := ctx.Store.Governors()
	if err != nil {
		return invalid(10, "store-error", err.Error())
	}
	switch p.Op {
	case OpDisable:
		out := governors[:0]
		for _, g := range governors {
			if g != p.GovernorRegId {
				out = append(out, g)
			}
		}
		if err := ctx.Store.SetGovernors(out); err != nil {
			return invalid(10, "store-error", err.Error())
		}
	case OpEnable:
		for _, g := range governors {
			if g == p.GovernorRegId {
				return invalid(10, "already-governor", p.GovernorRegId.String())
			}
		}
		if err := ctx.Store.SetGovernors(append(governors, p.GovernorRegId)); err != nil {
			return invalid(10, "store-error", err.Error())
		}
	}
	return finality.Valid()
}

// --- BpSize ---

// BpSizePayload schedules a future committee size, mirroring
// CGovBpSizeProposal.
type BpSizePayload struct {
	TotalBpsSize    int
	EffectiveHeight uint64
}

type bpSizeHandler struct{}

func (bpSizeHandler) Check(ctx *Context, payload any) *finality.ValidationState {
	p := payload.(*BpSizePayload)
	if p.TotalBpsSize < 1 || p.TotalBpsSize > 255 {
		return invalid(100, "bad-bp-count", "total_bps_size must be between 1 and 255")
	}
	if p.EffectiveHeight < ctx.Height+GovernEffectiveAfterBlockCount {
		return invalid(100, "bad-effective-height", fmt.Sprintf("effective_height must be >= current height + %d", GovernEffectiveAfterBlockCount))
	}
	return finality.Valid()
}

func (bpSizeHandler) Execute(ctx *Context, payload any) *finality.ValidationState {
	p := payload.(*BpSizePayload)
	governors, err := ctx.Store.Governors()
	if err != nil {
		return invalid(10, "store-error", err.Error())
	}
	if err := ctx.Store.SetCurrentTotalBpsSize(len(governors)); err != nil {
		return invalid(10, "save-currtotalbpssize-failed", err.Error())
	}
	if err := ctx.Store.SetNewTotalBpsSize(p.TotalBpsSize, p.EffectiveHeight); err != nil {
		return invalid(10, "save-newtotalbpssize-failed", err.Error())
	}
	return finality.Valid()
}

// --- MinerFee ---

// AllowedFeeSymbols mirrors kFeeSymbolSet.
var AllowedFeeSymbols = map[ids.TokenSymbol]struct{}{
	"WKC":  {},
	"WUSD": {},
}

// FeeUpdatableTxTypes mirrors kTxFeeTable's fee-updatable flag, keyed by a
// string tx-type name rather than the original's numeric enum (this system
// does not model the full transaction type table).
var FeeUpdatableTxTypes = map[string]bool{
	"transfer":     true,
	"proposal":     true,
	"registration": false,
}

// MinerFeePayload sets a per-tx-type, per-fee-symbol miner fee, mirroring
// CGovMinerFeeProposal.
type MinerFeePayload struct {
	TxType        string
	FeeSymbol     ids.TokenSymbol
	FeeSawiAmount uint64
}

type minerFeeHandler struct{}

func (minerFeeHandler) Check(ctx *Context, payload any) *finality.ValidationState {
	p := payload.(*MinerFeePayload)
	if _, ok := AllowedFeeSymbols[p.FeeSymbol]; !ok {
		return invalid(100, "feesymbol-error", string(p.FeeSymbol))
	}
	updatable, ok := FeeUpdatableTxTypes[p.TxType]
	if !ok {
		return invalid(100, "txtype-error", p.TxType)
	}
	if !updatable {
		return invalid(100, "can-not-update", p.TxType)
	}
	if p.FeeSawiAmount == 0 {
		return invalid(100, "can-not-be-zero", p.TxType)
	}
	return finality.Valid()
}

func (minerFeeHandler) Execute(ctx *Context, payload any) *finality.ValidationState {
	p := payload.(*MinerFeePayload)
	if err := ctx.Store.SetMinerFee(p.TxType, string(p.FeeSymbol), p.FeeSawiAmount); err != nil {
		return invalid(10, "store-error", err.Error())
	}
	return finality.Valid()
}

// --- CoinTransfer ---

// CoinTransferPayload moves amount of token from one account to another,
// mirroring CGovCoinTransferProposal.
type CoinTransferPayload struct {
	From   ids.UserId
	To     ids.UserId
	Token  ids.TokenSymbol
	Amount uint64
}

type coinTransferHandler struct{}

func (coinTransferHandler) Check(ctx *Context, payload any) *finality.ValidationState {
	p := payload.(*CoinTransferPayload)
	if p.Amount < DustAmountThreshold {
		return invalid(100, "invalid-coin-amount", fmt.Sprintf("dust amount %d < %d", p.Amount, DustAmountThreshold))
	}
	_, found, err := ctx.Store.Account(p.From)
	if err != nil {
		return invalid(10, "store-error", err.Error())
	}
	if !found {
		return invalid(100, "bad-getaccount", p.From.String())
	}
	return finality.Valid()
}

func (coinTransferHandler) Execute(ctx *Context, payload any) *finality.ValidationState {
	p := payload.(*CoinTransferPayload)
	src, found, err := ctx.Store.Account(p.From)
	if err != nil {
		return invalid(10, "store-error", err.Error())
	}
	if !found {
		return invalid(100, "bad-read-accountdb", p.From.String())
	}
	if err := src.OperateBalance(p.Token, account.OpSubFree, p.Amount); err != nil {
		return invalid(100, "operate-minus-account-failed", err.Error())
	}
	if err := ctx.Store.SetAccount(p.From, src); err != nil {
		return invalid(10, "bad-write-accountdb", err.Error())
	}

	dst, found, err := ctx.Store.Account(p.To)
	if err != nil {
		return invalid(10, "store-error", err.Error())
	}
	if !found {
		if p.To.Kind != ids.UserIdKindKeyId {
			return invalid(100, "bad-read-accountdb", p.To.String())
		}
		dst = account.NewAccount(p.To.Key)
	}
	if err := dst.OperateBalance(p.Token, account.OpAddFree, p.Amount); err != nil {
		return invalid(100, "operate-add-account-failed", err.Error())
	}
	if err := ctx.Store.SetAccount(p.To, dst); err != nil {
		return invalid(10, "bad-save-account", err.Error())
	}

	receipts := []Receipt{{From: p.From, To: p.To, Token: p.Token, Amount: p.Amount, Code: ReceiptCodeTransferProposal}}
	var proposalID ids.Hash256
	if ctx.ProposalId != nil {
		proposalID = *ctx.ProposalId
	}
	if err := ctx.Store.SetReceipts(proposalID, receipts); err != nil {
		return invalid(10, "bad-save-receipts", err.Error())
	}
	return finality.Valid()
}

// --- AccountPerm ---

// AccountPermPayload replaces an account's permission mask, mirroring
// CGovAccountPermProposal.
type AccountPermPayload struct {
	AccountUid      ids.UserId
	ProposedPermsSum account.PermFlag
}

type accountPermHandler struct{}

func (accountPermHandler) Check(ctx *Context, payload any) *finality.ValidationState {
	p := payload.(*AccountPermPayload)
	if p.AccountUid.IsZero() {
		return invalid(100, "account-uid-empty", "target account_uid is empty")
	}
	if p.ProposedPermsSum == 0 || p.ProposedPermsSum > account.AllPerms {
		return invalid(100, "account-perms-invalid", fmt.Sprintf("%d", p.ProposedPermsSum))
	}
	return finality.Valid()
}

func (accountPermHandler) Execute(ctx *Context, payload any) *finality.ValidationState {
	p := payload.(*AccountPermPayload)
	acct, found, err := ctx.Store.Account(p.AccountUid)
	if err != nil {
		return invalid(10, "store-error", err.Error())
	}
	if !found {
		return invalid(100, "bad-getaccount", p.AccountUid.String())
	}
	acct.PermsSum = p.ProposedPermsSum
	if err := ctx.Store.SetAccount(p.AccountUid, acct); err != nil {
		return invalid(10, "bad-save-account", err.Error())
	}
	return finality.Valid()
}

// --- AssetPerm ---

// AssetPermPayload replaces an asset's permission mask, mirroring
// CGovAssetPermProposal.
type AssetPermPayload struct {
	AssetSymbol      ids.TokenSymbol
	ProposedPermsSum asset.AssetPermFlag
}

type assetPermHandler struct{}

func (assetPermHandler) Check(ctx *Context, payload any) *finality.ValidationState {
	p := payload.(*AssetPermPayload)
	_, found, err := ctx.Store.Asset(p.AssetSymbol)
	if err != nil {
		return invalid(10, "store-error", err.Error())
	}
	if !found {
		return invalid(100, "asset-symbol-invalid", string(p.AssetSymbol))
	}
	if p.ProposedPermsSum == 0 {
		return invalid(100, "asset-perms-invalid", fmt.Sprintf("%d", p.ProposedPermsSum))
	}
	return finality.Valid()
}

func (assetPermHandler) Execute(ctx *Context, payload any) *finality.ValidationState {
	p := payload.(*AssetPermPayload)
	a, found, err := ctx.Store.Asset(p.AssetSymbol)
	if err != nil {
		return invalid(10, "store-error", err.Error())
	}
	if !found {
		return invalid(100, "asset-symbol-invalid", string(p.AssetSymbol))
	}
	a.PermsSum = p.ProposedPermsSum
	if err := ctx.Store.SetAsset(a); err != nil {
		return invalid(10, "store-error", err.Error())
	}
	return finality.Valid()
}

// --- CdpCoinPair ---

// CdpSupportedScoinSymbols mirrors kCdpScoinSymbolSet.
var CdpSupportedScoinSymbols = map[ids.TokenSymbol]struct{}{
	"WUSD": {},
}

// CdpCoinPairPayload sets a (bcoin, scoin) pair's status, mirroring
// CGovCdpCoinPairProposal.
type CdpCoinPairPayload struct {
	CoinPair CdpCoinPair
	Status   CdpCoinPairStatus
}

type cdpCoinPairHandler struct{}

func (cdpCoinPairHandler) Check(ctx *Context, payload any) *finality.ValidationState {
	p := payload.(*CdpCoinPairPayload)
	if _, ok := CdpSupportedScoinSymbols[p.CoinPair.ScoinSymbol]; !ok {
		return invalid(100, "unsupported_scoin_symbol", string(p.CoinPair.ScoinSymbol))
	}
	a, found, err := ctx.Store.Asset(p.CoinPair.BcoinSymbol)
	if err != nil {
		return invalid(10, "store-error", err.Error())
	}
	if !found || !a.CheckPerms(asset.PermCdpCollateral) {
		return invalid(100, "unsupported-asset-bcoin-symbol", string(p.CoinPair.BcoinSymbol))
	}
	if p.Status == CdpCoinPairStatusNone {
		return invalid(100, "unsupported-status", "status must not be NONE")
	}
	return finality.Valid()
}

func (cdpCoinPairHandler) Execute(ctx *Context, payload any) *finality.ValidationState {
	p := payload.(*CdpCoinPairPayload)
	if err := ctx.Store.SetCdpCoinPairStatus(p.CoinPair, p.Status); err != nil {
		return invalid(100, "unsupported-asset-symbol", err.Error())
	}
	return finality.Valid()
}

// --- CdpParam ---

// CdpParamTable declares the known CDP tunables; CDP_INTEREST_PARAM_A/B are
// additionally recorded with their effective height for curve interpolation.
var CdpParamTable = map[string]func(value string) error{
	"liquidation_ratio_bps": basisPointsRange,
	"stake_min_sawi":        positiveUint,
	"cdp_interest_param_a":  positiveUint,
	"cdp_interest_param_b":  positiveUint,
}

const (
	CdpParamInterestA = "cdp_interest_param_a"
	CdpParamInterestB = "cdp_interest_param_b"
)

// CdpParamPayload sets up to 50 CDP tunables, mirroring
// CGovCdpParamProposal.
type CdpParamPayload struct {
	CoinPair    CdpCoinPair
	ParamValues map[string]string
}

type cdpParamHandler struct{}

func (cdpParamHandler) Check(ctx *Context, payload any) *finality.ValidationState {
	p := payload.(*CdpParamPayload)
	if len(p.ParamValues) == 0 || len(p.ParamValues) > 50 {
		return invalid(100, "params-empty", "param list is empty or exceeds 50 entries")
	}
	for name, value := range p.ParamValues {
		validator, ok := CdpParamTable[name]
		if !ok {
			return invalid(100, "params-error", name)
		}
		if err := validator(value); err != nil {
			return invalid(100, "params-range-error", err.Error())
		}
	}
	return finality.Valid()
}

func (cdpParamHandler) Execute(ctx *Context, payload any) *finality.ValidationState {
	p := payload.(*CdpParamPayload)
	for name, value := range p.ParamValues {
		if _, ok := CdpParamTable[name]; !ok {
			return invalid(10, "params-error", name)
		}
		if err := ctx.Store.SetCdpParam(p.CoinPair, name, value); err != nil {
			return invalid(10, "store-error", err.Error())
		}
		if name == CdpParamInterestA || name == CdpParamInterestB {
			if err := ctx.Store.SetCdpInterestParam(p.CoinPair, name, ctx.Height, value); err != nil {
				return invalid(10, "store-error", err.Error())
			}
		}
	}
	return finality.Valid()
}

// --- DexOp ---

// DexOpPayload toggles a DEX operator, mirroring CGovDexOpProposal. Operator
// id 0 can never be disabled.
type DexOpPayload struct {
	DexId uint32
	Op    OpType
}

type dexOpHandler struct{}

func (dexOpHandler) Check(ctx *Context, payload any) *finality.ValidationState {
	p := payload.(*DexOpPayload)
	if p.DexId == 0 {
		return invalid(100, "operator0-cant-disable", "the No.0 dex operator can't be disabled")
	}
	if p.Op != OpEnable && p.Op != OpDisable {
		return invalid(100, "operate-type-error", "op must be ENABLE or DISABLE")
	}
	operator, found, err := ctx.Store.DexOperator(p.DexId)
	if err != nil {
		return invalid(10, "store-error", err.Error())
	}
	if !found {
		return invalid(100, "dexoperator-not-exist", fmt.Sprintf("%d", p.DexId))
	}
	if (operator.Activated && p.Op == OpEnable) || (!operator.Activated && p.Op == OpDisable) {
		return invalid(100, "need-not-update", "dex operator is already in the requested state")
	}
	return finality.Valid()
}

func (dexOpHandler) Execute(ctx *Context, payload any) *finality.ValidationState {
	p := payload.(*DexOpPayload)
	operator, found, err := ctx.Store.DexOperator(p.DexId)
	if err != nil {
		return invalid(10, "store-error", err.Error())
	}
	if !found {
		return invalid(100, "dexoperator-not-exist", fmt.Sprintf("%d", p.DexId))
	}
	if (operator.Activated && p.Op == OpEnable) || (!operator.Activated && p.Op == OpDisable) {
		return invalid(100, "need-not-update", "dex operator is already in the requested state")
	}
	operator.Activated = p.Op == OpEnable
	if err := ctx.Store.SetDexOperator(operator); err != nil {
		return invalid(100, "save-updated-operator-error", err.Error())
	}
	return finality.Valid()
}

// --- DexQuote ---

// DexQuotePayload adds or removes a DEX quote-coin symbol, mirroring
// CGovDexQuoteProposal.
type DexQuotePayload struct {
	CoinSymbol ids.TokenSymbol
	Op         OpType
}

type dexQuoteHandler struct{}

func (dexQuoteHandler) Check(ctx *Context, payload any) *finality.ValidationState {
	p := payload.(*DexQuotePayload)
	if p.Op == OpNull {
		return invalid(100, "bad-op-type", "op_type is null")
	}
	if !p.CoinSymbol.Valid() {
		return invalid(100, "bad-symbol", string(p.CoinSymbol))
	}
	hasCoin, err := ctx.Store.HasDexQuoteCoin(p.CoinSymbol)
	if err != nil {
		return invalid(10, "store-error", err.Error())
	}
	if hasCoin && p.Op == OpEnable {
		return invalid(100, "symbol-exist", string(p.CoinSymbol))
	}
	if !hasCoin && p.Op == OpDisable {
		return invalid(100, "symbol-not-exist", string(p.CoinSymbol))
	}
	return finality.Valid()
}

func (dexQuoteHandler) Execute(ctx *Context, payload any) *finality.ValidationState {
	p := payload.(*DexQuotePayload)
	if p.Op == OpEnable {
		if err := ctx.Store.AddDexQuoteCoin(p.CoinSymbol); err != nil {
			return invalid(10, "store-error", err.Error())
		}
		return finality.Valid()
	}
	ctx.Store.EraseDexQuoteCoin(p.CoinSymbol)
	return finality.Valid()
}

// --- FeedCoinPair ---

// PriceQuoteSymbols mirrors kPriceQuoteSymbolSet.
var PriceQuoteSymbols = map[ids.TokenSymbol]struct{}{
	"USD": {},
}

// FeedCoinPairPayload adds or removes a (feed_symbol, quote_symbol) price
// feed pair, mirroring CGovFeedCoinPairProposal.
type FeedCoinPairPayload struct {
	FeedSymbol  ids.TokenSymbol
	QuoteSymbol ids.TokenSymbol
	Op          OpType
}

type feedCoinPairHandler struct{}

func (feedCoinPairHandler) Check(ctx *Context, payload any) *finality.ValidationState {
	p := payload.(*FeedCoinPairPayload)
	if p.Op == OpNull {
		return invalid(100, "bad-op-type", "op_type is null")
	}
	a, found, err := ctx.Store.Asset(p.FeedSymbol)
	if err != nil {
		return invalid(10, "store-error", err.Error())
	}
	if !found || !a.CheckPerms(asset.PermPriceFeed) {
		return invalid(100, "bad-symbol", string(p.FeedSymbol))
	}
	if _, ok := PriceQuoteSymbols[p.QuoteSymbol]; !ok {
		return invalid(100, "bad-symbol", string(p.QuoteSymbol))
	}
	hasCoin, err := ctx.Store.HasFeedCoinPair(p.FeedSymbol, p.QuoteSymbol)
	if err != nil {
		return invalid(10, "store-error", err.Error())
	}
	if hasCoin && p.Op == OpEnable {
		return invalid(100, "symbol-exist", string(p.FeedSymbol))
	}
	if !hasCoin && p.Op == OpDisable {
		return invalid(100, "symbol-not-exist", string(p.FeedSymbol))
	}
	return finality.Valid()
}

func (feedCoinPairHandler) Execute(ctx *Context, payload any) *finality.ValidationState {
	p := payload.(*FeedCoinPairPayload)
	if p.Op == OpEnable {
		if err := ctx.Store.AddFeedCoinPair(p.FeedSymbol, p.QuoteSymbol); err != nil {
			return invalid(10, "store-error", err.Error())
		}
		return finality.Valid()
	}
	ctx.Store.EraseFeedCoinPair(p.FeedSymbol, p.QuoteSymbol)
	return finality.Valid()
}

// --- AxcIn / AxcOut ---

// AxcInPayload and AxcOutPayload are reserved cross-chain deposit/withdrawal
// placeholders. Both Check and Execute always succeed, unconditionally,
// exactly as CGovAxcInProposal/CGovAxcOutProposal do in the original source
// (§9 Open Questions): this is not a gap to fill in, it is the documented
// behavior of a feature the original never finished wiring up.
type AxcInPayload struct {
	Memo string
}

type axcInHandler struct{}

func (axcInHandler) Check(ctx *Context, payload any) *finality.ValidationState   { return finality.Valid() }
func (axcInHandler) Execute(ctx *Context, payload any) *finality.ValidationState { return finality.Valid() }

type AxcOutPayload struct {
	Memo string
}

type axcOutHandler struct{}

func (axcOutHandler) Check(ctx *Context, payload any) *finality.ValidationState   { return finality.Valid() }
func (axcOutHandler) Execute(ctx *Context, payload any) *finality.ValidationState { return finality.Valid() }
