package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/atelieredu/traza/pkg/dotdir"
)

var _ = Describe("SessionState", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-session-test-*")
		Expect(err).NotTo(HaveOccurred())

		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("LoadSessionState", func() {
		It("returns nil when no session state exists", func() {
			state, err := m.LoadSessionState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(BeNil())
		})

		It("loads a previously written session state", func() {
			path := filepath.Join(tmpDir, "session.json")
			data := []byte(`{
  "session_id": "sess-123",
  "student_id": "student-42",
  "activity_id": "prog2_tp1",
  "mode": "TUTOR"
}`)
			Expect(os.WriteFile(path, data, 0o600)).To(Succeed())

			state, err := m.LoadSessionState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).NotTo(BeNil())
			Expect(state.SessionID).To(Equal("sess-123"))
			Expect(state.StudentID).To(Equal("student-42"))
			Expect(state.ActivityID).To(Equal("prog2_tp1"))
			Expect(state.Mode).To(Equal("TUTOR"))
		})

		It("returns an error for malformed session state", func() {
			path := filepath.Join(tmpDir, "session.json")
			Expect(os.WriteFile(path, []byte("not json"), 0o600)).To(Succeed())

			state, err := m.LoadSessionState(tmpDir)
			Expect(err).To(HaveOccurred())
			Expect(state).To(BeNil())
		})
	})

	Describe("SaveSessionState", func() {
		It("persists the session state to session.json", func() {
			state := &dotdir.SessionState{
				SessionID:  "sess-abc",
				StudentID:  "student-7",
				ActivityID: "prog2_tp2",
				Mode:       "SIMULADOR",
			}
			Expect(m.SaveSessionState(state, tmpDir)).To(Succeed())

			data, err := os.ReadFile(filepath.Join(tmpDir, "session.json"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`"session_id": "sess-abc"`))
			Expect(string(data)).To(ContainSubstring(`"mode": "SIMULADOR"`))
		})

		It("rejects a nil session state", func() {
			err := m.SaveSessionState(nil, tmpDir)
			Expect(err).To(HaveOccurred())
		})

		It("overwrites an existing session state", func() {
			first := &dotdir.SessionState{SessionID: "sess-1", StudentID: "s1", ActivityID: "a1"}
			Expect(m.SaveSessionState(first, tmpDir)).To(Succeed())

			second := &dotdir.SessionState{SessionID: "sess-2", StudentID: "s1", ActivityID: "a1"}
			Expect(m.SaveSessionState(second, tmpDir)).To(Succeed())

			state, err := m.LoadSessionState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state.SessionID).To(Equal("sess-2"))
		})
	})

	Describe("ClearSessionState", func() {
		It("removes the session file", func() {
			state := &dotdir.SessionState{SessionID: "sess-xyz", StudentID: "s", ActivityID: "a"}
			Expect(m.SaveSessionState(state, tmpDir)).To(Succeed())

			Expect(m.ClearSessionState(tmpDir)).To(Succeed())

			_, err := os.Stat(filepath.Join(tmpDir, "session.json"))
			Expect(os.IsNotExist(err)).To(BeTrue())
		})

		It("succeeds when no session file exists", func() {
			Expect(m.ClearSessionState(tmpDir)).To(Succeed())
		})
	})

	It("round-trips a session state", func() {
		state := &dotdir.SessionState{
			SessionID:  "sess-round",
			StudentID:  "student-99",
			ActivityID: "prog2_tp3",
			Mode:       "GOBERNANZA",
		}
		Expect(m.SaveSessionState(state, tmpDir)).To(Succeed())

		loaded, err := m.LoadSessionState(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(Equal(state))
	})
})
