package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"forest.app/forest/internal/http/handler"
	"forest.app/forest/internal/model"
	"forest.app/forest/internal/snapshot"
)

var _ = Describe("SnapshotHandler", func() {
	var (
		router *gin.Engine
		svc    *mockSnapshotService
	)

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockSnapshotService{}
		h := handler.NewSnapshotHandler(svc)
		router.GET("/users/:user_id/snapshot", h.Latest)
		router.GET("/reflections/:reflection_id/events", h.ReflectionEvents)
	})

	It("returns the snapshot document", func() {
		svc.latestFn = func(_ context.Context, userID string) (*snapshot.Snapshot, error) {
			Expect(userID).To(Equal("u1"))
			snap := snapshot.New(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
			snap.XP = 42
			snap.ActivatedState.GoalSet = true
			return snap, nil
		}

		w := get("/users/u1/snapshot")

		Expect(w.Code).To(Equal(http.StatusOK))
		resp := decode(w)
		Expect(resp["xp"]).To(BeNumerically("==", 42))
		Expect(resp["activated_state"]).To(HaveKeyWithValue("goal_set", true))
		Expect(resp["last_ritual_mode"]).To(Equal("Trail"))
	})

	It("returns 404 for users without a snapshot", func() {
		Expect(get("/users/ghost/snapshot").Code).To(Equal(http.StatusNotFound))
	})

	It("returns 500 when loading fails", func() {
		svc.latestFn = func(context.Context, string) (*snapshot.Snapshot, error) {
			return nil, errors.New("decoding snapshot 7: bad json")
		}
		Expect(get("/users/u1/snapshot").Code).To(Equal(http.StatusInternalServerError))
	})

	It("lists reflection events", func() {
		sentiment := 0.4
		svc.reflectionEventsFn = func(_ context.Context, reflectionID string) ([]model.ReflectionEventLog, error) {
			Expect(reflectionID).To(Equal("r1"))
			return []model.ReflectionEventLog{{
				ID:             9,
				ReflectionID:   "r1",
				EventType:      "processed",
				SentimentScore: &sentiment,
				EventMetadata:  model.JSON(`{"input_length":18}`),
			}}, nil
		}

		w := get("/reflections/r1/events")

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp []map[string]any
		Expect(decodeInto(w, &resp)).To(Succeed())
		Expect(resp).To(HaveLen(1))
		Expect(resp[0]["id"]).To(Equal("9"))
		Expect(resp[0]["sentiment_score"]).To(BeNumerically("~", 0.4))
		Expect(resp[0]["event_metadata"]).To(HaveKeyWithValue("input_length", BeNumerically("==", 18)))
	})
})
