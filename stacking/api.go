package stacking

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/mux"

	"github.com/chainpoint/stacking-api/c32"
	"github.com/chainpoint/stacking-api/clarity"
	"github.com/chainpoint/stacking-api/cycle"
	"github.com/chainpoint/stacking-api/level"
	"github.com/chainpoint/stacking-api/stacks"
	"github.com/chainpoint/stacking-api/threadsafe_ulid"
	"github.com/chainpoint/stacking-api/types"
	"github.com/chainpoint/stacking-api/util"
)

const (
	apiVersion   = "0.1.0"
	maxTxBytes   = 1 << 20
	canStackFn   = "can-stack-stx"
	stackStxFn   = "stack-stx"
	stackerFn    = "get-stacker-info"
	jsonMimeType = "application/json"
)

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// StackSubmission : POST /stack body, a transaction already signed by the stacker's wallet
type StackSubmission struct {
	Tx string `json:"tx"`
}

// SubmissionStatus : GET /stack/{id} response
type SubmissionStatus struct {
	types.Submission
	Transaction types.TxStatus `json:"transaction"`
}

func (app *StackingApplication) HomeHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusTeapot)
	fmt.Fprintf(w, "This is an API endpoint. Please consult https://docs.stacks.co/understand-stacks/stacking")
}

// respondJSON makes the response with payload as json format
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if util.LogError(err) != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(err.Error()))
		return
	}
	w.Header().Set("Content-Type", jsonMimeType)
	w.WriteHeader(status)
	w.Write([]byte(response))
}

// respondError : 400 for bad request input, 404 for unknown submissions, 502 for anything upstream.
// A read-only call the node could not evaluate (*stacks.ReadOnlyError) is an upstream failure, not ineligibility.
func (app *StackingApplication) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, level.ErrNotFound):
		status = http.StatusNotFound
	}
	app.logger.Error("Request failed", "path", r.URL.Path, "status", status, "err", err.Error())
	respondJSON(w, status, map[string]interface{}{"error": err.Error()})
}

// stackerAddress : the required address query parameter, which must belong to the configured network
func (app *StackingApplication) stackerAddress(r *http.Request) (c32.Address, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("address"))
	if raw == "" {
		return c32.Address{}, badRequest("address query parameter is required")
	}
	addr, err := c32.Decode(raw)
	if err != nil {
		return c32.Address{}, badRequest("%s", err.Error())
	}
	var allowed []byte
	if app.config.Network == types.NetworkMainnet {
		allowed = []byte{c32.MainnetSingleSig, c32.MainnetMultiSig}
	} else {
		allowed = []byte{c32.TestnetSingleSig, c32.TestnetMultiSig}
	}
	if addr.Version != allowed[0] && addr.Version != allowed[1] {
		return c32.Address{}, badRequest("address %s is not a %s address", raw, app.config.Network)
	}
	return addr, nil
}

func (app *StackingApplication) requestCycles(r *http.Request) (int64, error) {
	cycles, err := util.ParseCycles(r.URL.Query().Get("cycles"), app.config.NumberOfCycles, app.config.MaxCycles)
	if err != nil {
		return 0, badRequest("%s", err.Error())
	}
	return cycles, nil
}

// requestAmount : the optional amount query parameter in micro-STX, def when absent
func requestAmount(r *http.Request, def int64) (int64, error) {
	raw := r.URL.Query().Get("amount")
	if raw == "" {
		return def, nil
	}
	amount, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || amount <= 0 {
		return 0, badRequest("amount must be a positive integer: %s", raw)
	}
	return amount, nil
}

// poxContract : address and name of the pox contract reported by the node
func poxContract(pox types.PoxInfo) (string, string, error) {
	addr, name, err := stacks.SplitContractID(pox.ContractID)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s", cycle.ErrInvalidInput, err.Error())
	}
	return addr, name, nil
}

// InfoHandler : timing of the next reward cycle and the projected unlock for the requested cycles
func (app *StackingApplication) InfoHandler(w http.ResponseWriter, r *http.Request) {
	cycles, err := app.requestCycles(r)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	params, err := app.chainParams(r.Context(), cycles)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	projection, err := cycle.Project(params, app.now())
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, projection)
}

// UserHandler : balance of the stacker and whether it covers the minimum
func (app *StackingApplication) UserHandler(w http.ResponseWriter, r *http.Request) {
	addr, err := app.stackerAddress(r)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	pox, err := app.Stacks.GetPoxInfo(r.Context())
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	minimum, err := requireField("min_amount_ustx", pox.MinAmountUSTX)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	balance, err := app.Stacks.GetAccountBalance(r.Context(), addr.String())
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	stx, ok := new(big.Int).SetString(balance.STX.Balance, 10)
	if !ok {
		app.respondError(w, r, fmt.Errorf("upstream returned unparseable balance %q", balance.STX.Balance))
		return
	}
	btcAddress, err := c32.ToBase58(addr.String())
	if app.LogError(err) != nil {
		respondJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": "could not derive bitcoin address"})
		return
	}
	respondJSON(w, http.StatusOK, types.UserInfo{
		StxAddress:        addr.String(),
		BtcAddress:        btcAddress,
		AccountSTXBalance: balance.STX.Balance,
		CanParticipate:    stx.Cmp(big.NewInt(minimum)) >= 0,
	})
}

// EligibleHandler : asks the pox contract whether the stacker could lock now
func (app *StackingApplication) EligibleHandler(w http.ResponseWriter, r *http.Request) {
	addr, err := app.stackerAddress(r)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	cycles, err := app.requestCycles(r)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	pox, err := app.Stacks.GetPoxInfo(r.Context())
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	contractAddress, contractName, err := poxContract(pox)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	minimum, err := requireField("min_amount_ustx", pox.MinAmountUSTX)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	amount, err := requestAmount(r, minimum)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	rewardCycle, err := app.currentRewardCycle(r.Context(), pox)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	args := []string{
		clarity.Hex(clarity.PoxAddress(addr)),
		clarity.Hex(clarity.UInt(amount)),
		clarity.Hex(clarity.UInt(rewardCycle)),
		clarity.Hex(clarity.UInt(cycles)),
	}
	result, err := app.Stacks.CallReadOnly(r.Context(), contractAddress, contractName, canStackFn, addr.String(), args)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	isErr, err := clarity.IsErr(result.Result)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"isEligible": !isErr})
}

// StackPrepareHandler : builds the unsigned stack-stx call for the stacker's wallet
func (app *StackingApplication) StackPrepareHandler(w http.ResponseWriter, r *http.Request) {
	addr, err := app.stackerAddress(r)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	cycles, err := app.requestCycles(r)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	pox, err := app.Stacks.GetPoxInfo(r.Context())
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	contractAddress, contractName, err := poxContract(pox)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	minimum, err := requireField("min_amount_ustx", pox.MinAmountUSTX)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	amount, err := requestAmount(r, minimum)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	if amount < minimum {
		app.respondError(w, r, badRequest("amount %d is below the minimum of %d", amount, minimum))
		return
	}
	respondJSON(w, http.StatusOK, types.StackPreparation{
		StxAddress:     addr.String(),
		AmountUSTX:     amount,
		NumberOfCycles: cycles,
		PoxAddress: types.PoxAddress{
			Version:   hexutil.Encode([]byte{addr.PoxVersion()}),
			HashBytes: hexutil.Encode(addr.Hash160),
		},
		ContractCall: types.ContractCall{
			ContractAddress: contractAddress,
			ContractName:    contractName,
			FunctionName:    stackStxFn,
			FunctionArgs: []string{
				clarity.Hex(clarity.UInt(amount)),
				clarity.Hex(clarity.PoxAddress(addr)),
				clarity.Hex(clarity.UInt(cycles)),
			},
		},
	})
}

// StackSubmitHandler : broadcasts a signed stacking transaction and records it
func (app *StackingApplication) StackSubmitHandler(w http.ResponseWriter, r *http.Request) {
	addr, err := app.stackerAddress(r)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	if !strings.HasPrefix(r.Header.Get("Content-Type"), jsonMimeType) {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "invalid content type"})
		return
	}
	d := json.NewDecoder(io.LimitReader(r.Body, maxTxBytes))
	d.DisallowUnknownFields()
	submission := StackSubmission{}
	if app.LogError(d.Decode(&submission)) != nil || len(submission.Tx) == 0 {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "invalid JSON body: missing tx"})
		return
	}
	rawTx, err := hexutil.Decode(submission.Tx)
	if err != nil {
		app.respondError(w, r, badRequest("tx must be 0x prefixed hex: %s", err.Error()))
		return
	}
	txID, err := app.Stacks.BroadcastTransaction(r.Context(), rawTx)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	id, err := app.ULIDGenerator.NewUlid()
	if app.LogError(err) != nil {
		respondJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": "cannot compute ulid"})
		return
	}
	record := types.Submission{
		ID:         id.String(),
		TxID:       txID,
		StxAddress: addr.String(),
		Submitted:  app.now().UTC().Truncate(time.Second),
	}
	// the transaction is already on the network, so a failed write is only logged
	app.LogError(app.Store.SaveSubmission(record))
	app.logger.Info("Broadcast stacking transaction", "id", record.ID, "txid", txID, "address", record.StxAddress)
	respondJSON(w, http.StatusOK, record)
}

// StackStatusHandler : a recorded submission, found by id or txid, with its upstream status
func (app *StackingApplication) StackStatusHandler(w http.ResponseWriter, r *http.Request) {
	addr, err := app.stackerAddress(r)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	id := mux.Vars(r)["id"]
	if threadsafe_ulid.IsUlid(id) {
		id = strings.ToUpper(id)
	} else if id, err = stacks.NormalizeTxID(id); err != nil {
		app.respondError(w, r, badRequest("%s is neither a submission id nor a transaction id", mux.Vars(r)["id"]))
		return
	}
	record, err := app.Store.GetSubmission(id)
	if err == nil && record.StxAddress != addr.String() {
		err = level.ErrNotFound
	}
	if err != nil {
		app.respondError(w, r, fmt.Errorf("submission %s: %w", mux.Vars(r)["id"], err))
		return
	}
	status, err := app.Stacks.GetTransaction(r.Context(), record.TxID)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, SubmissionStatus{Submission: record, Transaction: status})
}

// StackerInfoHandler : the pox contract's get-stacker-info entry for the stacker, rendered as clarity
func (app *StackingApplication) StackerInfoHandler(w http.ResponseWriter, r *http.Request) {
	addr, err := app.stackerAddress(r)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	pox, err := app.Stacks.GetPoxInfo(r.Context())
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	contractAddress, contractName, err := poxContract(pox)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	args := []string{clarity.Hex(clarity.StandardPrincipal(addr))}
	result, err := app.Stacks.CallReadOnly(r.Context(), contractAddress, contractName, stackerFn, addr.String(), args)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	response, err := clarity.ToString(result.Result)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	rewardCycle, err := app.currentRewardCycle(r.Context(), pox)
	if err != nil {
		app.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"response": response, "rewardCycleId": rewardCycle})
}

func (app *StackingApplication) StatusHandler(w http.ResponseWriter, r *http.Request) {
	info, err := app.Stacks.GetCoreInfo(r.Context())
	if app.LogError(err) != nil {
		respondJSON(w, http.StatusBadGateway, map[string]interface{}{"error": "Could not query for status"})
		return
	}
	apiStatus := types.APIStatus{
		Version:         apiVersion,
		Time:            app.now().UTC().Format("2006-01-02T15:04:05.999Z07:00"),
		Network:         app.config.Network,
		StacksAPIURL:    app.config.StacksAPIURL,
		StacksTipHeight: info.StacksTipHeight,
		ServerVersion:   info.ServerVersion,
	}
	if info.BurnBlockHeight != nil {
		apiStatus.BurnBlockHeight = *info.BurnBlockHeight
	}
	respondJSON(w, http.StatusOK, apiStatus)
}
