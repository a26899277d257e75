package main

import (
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cloudx-io/sealedbid/core"
	"github.com/cloudx-io/sealedbid/house"
	"github.com/cloudx-io/sealedbid/marketapi"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: Failed to encode response: %v", err)
	}
}

// writeError maps the protocol error taxonomy onto HTTP statuses: validation
// 400, state conflicts 409, integrity failures 422, transfer failures 502.
func writeError(w http.ResponseWriter, err error) {
	kind := core.Kind(err)
	status := http.StatusInternalServerError
	switch kind {
	case core.KindValidation:
		status = http.StatusBadRequest
	case core.KindStateConflict:
		status = http.StatusConflict
	case core.KindIntegrity:
		status = http.StatusUnprocessableEntity
	case core.KindTransfer:
		status = http.StatusBadGateway
	}
	writeJSON(w, status, marketapi.ErrorResponse{
		Message: err.Error(),
		Kind:    kind.String(),
	})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, marketapi.ErrorResponse{
			Message: "invalid request body: " + err.Error(),
			Kind:    core.KindValidation.String(),
		})
		return false
	}
	return true
}

func (s *Server) handlePublicKey(w http.ResponseWriter, _ *http.Request) {
	pemStr, err := s.keyManager.PublicKeyPEM()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"public_key": pemStr})
}

func (s *Server) handleListItem(w http.ResponseWriter, r *http.Request) {
	var req marketapi.ListItemRequest
	if !decode(w, r, &req) {
		return
	}

	meta, err := s.house.ListItem(r.Context(), req.Credential, house.Listing{
		Name:           req.Name,
		Category:       req.Category,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		RevealDeadline: req.RevealDeadline,
		MinimumPrice:   req.MinimumPrice,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, marketapi.ListItemResponse{
		Success: true,
		Item:    meta,
	})
}

func (s *Server) handleGetItems(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"items": s.house.Items()})
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	view, err := s.house.Item(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, marketapi.ItemView{
		Meta:   view.Meta,
		State:  view.State.String(),
		Ledger: view.Ledger,
		Result: view.Result,
		Escrow: view.Escrow,
	})
}

func (s *Server) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	var req marketapi.PlaceBidRequest
	if !decode(w, r, &req) {
		return
	}

	c, err := s.house.PlaceBid(r.Context(), req.Credential, mux.Vars(r)["id"], req.Commitment, req.Collateral)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, marketapi.PlaceBidResponse{
		Success:    true,
		Commitment: c,
	})
}

func (s *Server) handleRevealBid(w http.ResponseWriter, r *http.Request) {
	var req marketapi.RevealBidRequest
	if !decode(w, r, &req) {
		return
	}

	bid, err := s.house.RevealBid(r.Context(), req.Credential, mux.Vars(r)["id"], req.Amount, req.Secret)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, marketapi.RevealBidResponse{
		Success: true,
		Bid:     bid,
	})
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	var req marketapi.FinalizeRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := s.house.Finalize(r.Context(), req.Credential, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, marketapi.FinalizeResponse{
		Success: true,
		Result:  result,
	})
}

func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	var req marketapi.SettleRequest
	if !decode(w, r, &req) {
		return
	}
	itemID := mux.Vars(r)["id"]

	if err := s.house.Settle(r.Context(), req.Credential, itemID); err != nil {
		writeError(w, err)
		return
	}

	resp := marketapi.SettleResponse{Success: true}
	view, err := s.house.Item(itemID)
	if err != nil {
		writeError(w, err)
		return
	}
	resp.Escrow = view.Escrow

	journal, err := s.house.SettlementJournal(itemID)
	if err != nil {
		writeError(w, err)
		return
	}
	if view.Result != nil {
		coseBytes, err := BuildSettlementReceipt(s.keyManager, view.Meta, *view.Result, journal)
		if err != nil {
			log.Printf("ERROR: Failed to build settlement receipt for item %s: %v", itemID, err)
		} else {
			resp.ReceiptCOSEBase64 = base64.StdEncoding.EncodeToString(coseBytes)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRetrySettlement(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["id"]
	if err := s.house.RetrySettlement(r.Context(), itemID); err != nil {
		writeError(w, err)
		return
	}
	view, err := s.house.Item(itemID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, marketapi.SettleResponse{
		Success: true,
		Escrow:  view.Escrow,
	})
}

func (s *Server) handleGetEscrow(w http.ResponseWriter, r *http.Request) {
	info, err := s.house.EscrowInfo(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
