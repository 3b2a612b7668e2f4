package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/contract-cli/internal/analysis"
	"github.com/sells-group/contract-cli/internal/preference"
	"github.com/sells-group/contract-cli/internal/session"
	"github.com/sells-group/contract-cli/internal/store"
)

// apiServer exposes the pipeline over HTTP.
type apiServer struct {
	env *appEnv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("response write failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID       string `json:"user_id"`
		ContractText string `json:"contract_text"`
		ContractName string `json:"contract_name"`
		Language     string `json:"language"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if req.ContractText == "" {
		writeError(w, http.StatusBadRequest, "contract_text is required")
		return
	}
	if req.UserID == "" {
		req.UserID = "default"
	}
	lang := req.Language
	if lang == "" {
		lang = cfg.Analysis.DefaultLang
	}

	ctx := r.Context()
	focus := s.env.Analyzer.FocusAreas(ctx, req.UserID)

	shadow, err := s.env.Shadow.Analyze(ctx, req.ContractText, focus, lang)
	if err != nil {
		zap.L().Error("shadow analysis failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "analysis failed")
		return
	}
	record, err := s.env.Summary.Analyze(ctx, req.ContractText, focus, lang)
	if err != nil {
		zap.L().Error("summary analysis failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "analysis failed")
		return
	}

	eval := analysis.Evaluate(shadow, record, focus)
	report := analysis.MergeReport(req.UserID, req.ContractName, lang, record, eval)

	if cfg.Analysis.SaveAnalyses {
		if err := s.env.Store.SaveAnalysis(ctx, report); err != nil {
			zap.L().Warn("analysis not persisted", zap.Error(err))
		}
	}

	if lang != "" && lang != "en" {
		m, err := toMap(report)
		if err != nil {
			zap.L().Error("report conversion failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		res := s.env.Translator.Translate(ctx, m, lang)
		if res.Err != "" {
			zap.L().Warn("report partially translated", zap.String("error", res.Err))
		}
		writeJSON(w, http.StatusOK, res.TranslatedContent)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *apiServer) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content    any    `json:"content"`
		TargetLang string `json:"target_lang"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if req.TargetLang == "" {
		writeError(w, http.StatusBadRequest, "target_lang is required")
		return
	}

	res := s.env.Translator.Translate(r.Context(), req.Content, req.TargetLang)
	writeJSON(w, http.StatusOK, res)
}

func (s *apiServer) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID       string `json:"user_id"`
		ContractText string `json:"contract_text"`
		Language     string `json:"language"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if req.ContractText == "" {
		writeError(w, http.StatusBadRequest, "contract_text is required")
		return
	}
	if req.UserID == "" {
		req.UserID = "default"
	}
	if req.Language == "" {
		req.Language = cfg.Analysis.DefaultLang
	}

	sess, err := s.env.Sessions.Create(r.Context(), req.UserID, req.ContractText, req.Language)
	if err != nil {
		zap.L().Error("session create failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *apiServer) handleExpireSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := s.env.Sessions.Expire(r.Context(), id); err != nil {
		if eris.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		zap.L().Error("session expire failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Question  string `json:"question"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if req.SessionID == "" || req.Question == "" {
		writeError(w, http.StatusBadRequest, "session_id and question are required")
		return
	}

	answer, err := s.env.Chat.Ask(r.Context(), req.SessionID, req.Question)
	if err != nil {
		if eris.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		zap.L().Error("chat failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "chat failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": answer})
}

func (s *apiServer) handleAreas(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	ctx := r.Context()

	weights, err := s.env.Store.GetWeights(ctx, userID)
	if err != nil {
		zap.L().Error("get weights failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		UserID            string                        `json:"user_id"`
		Weights           map[string]float64            `json:"weights"`
		FocusAreas        []string                      `json:"focus_areas"`
		FrequentQuestions []preference.FrequentQuestion `json:"frequent_questions"`
	}{
		UserID:            userID,
		Weights:           weights,
		FocusAreas:        s.env.Analyzer.FocusAreas(ctx, userID),
		FrequentQuestions: s.env.Analyzer.FrequentQuestions(ctx, userID, 5),
	})
}

func (s *apiServer) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "analysisID")

	rec, err := s.env.Store.GetAnalysis(r.Context(), id)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "analysis not found")
			return
		}
		zap.L().Error("get analysis failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
