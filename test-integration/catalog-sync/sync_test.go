package integration

import (
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pokemnky/catalog-sync/internal/cache"
	"github.com/pokemnky/catalog-sync/internal/catalog"
	"github.com/pokemnky/catalog-sync/internal/config"
	"github.com/pokemnky/catalog-sync/internal/status"
	pkgsync "github.com/pokemnky/catalog-sync/internal/sync"
	"github.com/pokemnky/catalog-sync/internal/sync/state"
	"github.com/pokemnky/catalog-sync/internal/upstreamtest"
	"github.com/pokemnky/catalog-sync/test-integration/catalog-sync/helpers"
)

func pokemonProgress(snapshot status.Snapshot) status.KindProgress {
	for _, p := range snapshot.Kinds {
		if p.Kind == catalog.KindPokemon {
			return p
		}
	}
	Fail("pokemon missing from progress")
	return status.KindProgress{}
}

var _ = Describe("Catalog Sync over HTTP", Label("sync"), func() {
	var (
		tempDir      string
		upstream     *upstreamtest.Server
		serverHelper *helpers.ServerTestHelper
	)

	trigger := func(req pkgsync.Request) pkgsync.Summary {
		resp, err := serverHelper.TriggerRun(req)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		var summary pkgsync.Summary
		helpers.DecodeJSON(resp, &summary)
		return summary
	}

	progress := func() status.Snapshot {
		resp, err := serverHelper.GetProgress()
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		var snapshot status.Snapshot
		helpers.DecodeJSON(resp, &snapshot)
		return snapshot
	}

	BeforeEach(func() {
		tempDir = createTempDir("catalog-sync-test-")
		upstream = helpers.NewUpstream(5)

		configFile := helpers.WriteConfigYAML(tempDir, upstream.BaseURL(), nil)

		var err error
		serverHelper, err = helpers.NewServerTestHelper(ctx, configFile)
		Expect(err).NotTo(HaveOccurred())
		Expect(serverHelper.StartServer()).To(Succeed())
		serverHelper.WaitForServerReady(10 * time.Second)
	})

	AfterEach(func() {
		Expect(serverHelper.StopServer()).To(Succeed())
		upstream.Close()
		cleanupTempDir(tempDir)
	})

	Context("Seeding and ingesting", func() {
		It("should fill the cache after a seed and a worker run", func() {
			seed := trigger(pkgsync.Request{Mode: state.ModeSeed, Kinds: []string{"pokemon"}})
			Expect(seed.Status).To(Equal(state.StatusCompleted))
			Expect(seed.Succeeded).To(Equal(int64(5)))

			snapshot := progress()
			Expect(pokemonProgress(snapshot).EstimatedTotal).To(Equal(int64(5)))
			Expect(pokemonProgress(snapshot).Synced).To(BeZero())

			work := trigger(pkgsync.Request{Mode: state.ModeWorker})
			Expect(work.Status).To(Equal(state.StatusCompleted))
			Expect(work.Succeeded).To(Equal(int64(5)))
			Expect(work.Remaining).To(BeZero())

			p := pokemonProgress(progress())
			Expect(p.Synced).To(Equal(int64(5)))
			Expect(p.Percent).To(BeNumerically("==", 100))

			resp, err := serverHelper.GetResource("pokemon", "3")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var res cache.Resource
			helpers.DecodeJSON(resp, &res)
			Expect(res.DisplayName).To(Equal("pokemon-3"))
		})

		It("should respect the seed limit", func() {
			seed := trigger(pkgsync.Request{Mode: state.ModeSeed, Kinds: []string{"pokemon"}, Limit: 2})
			Expect(seed.Succeeded).To(Equal(int64(2)))

			work := trigger(pkgsync.Request{Mode: state.ModeWorker})
			Expect(work.Succeeded).To(Equal(int64(2)))
		})

		It("should record every run in the job ledger", func() {
			trigger(pkgsync.Request{Mode: state.ModeSeed, Kinds: []string{"pokemon"}})
			trigger(pkgsync.Request{Mode: state.ModeWorker})

			resp, err := serverHelper.GetJobs("mode=worker")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var body struct {
				Jobs []state.SyncJob `json:"jobs"`
			}
			helpers.DecodeJSON(resp, &body)
			Expect(body.Jobs).To(HaveLen(1))
			Expect(body.Jobs[0].Mode).To(Equal(state.ModeWorker))
		})
	})

	Context("Incremental detection", func() {
		It("should pick up ids published after the seed", func() {
			trigger(pkgsync.Request{Mode: state.ModeSeed, Kinds: []string{"pokemon"}})
			trigger(pkgsync.Request{Mode: state.ModeWorker})

			upstream.AddNamed(catalog.KindPokemon, 6, "pokemon-6")
			upstream.AddNamed(catalog.KindPokemon, 7, "pokemon-7")

			detect := trigger(pkgsync.Request{Mode: state.ModeDetect, Kinds: []string{"pokemon"}})
			Expect(detect.Status).To(Equal(state.StatusCompleted))
			Expect(detect.Succeeded).To(Equal(int64(2)))

			resp, err := serverHelper.GetResource("pokemon", "7")
			Expect(err).NotTo(HaveOccurred())
			_ = resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Context("Rejected requests", func() {
		It("should reject bodies that do not match the schema", func() {
			resp, err := serverHelper.TriggerRaw(`{"mode":"seed","limit":-1}`)
			Expect(err).NotTo(HaveOccurred())
			_ = resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("should report sprite mirroring as unavailable when disabled", func() {
			resp, err := serverHelper.TriggerRun(pkgsync.Request{Mode: state.ModeSpriteMirror})
			Expect(err).NotTo(HaveOccurred())
			_ = resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
		})

		It("should return 404 for resources that were never stored", func() {
			resp, err := serverHelper.GetResource("pokemon", "999")
			Expect(err).NotTo(HaveOccurred())
			_ = resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})
})

var _ = Describe("Scheduled Sync", Label("schedule"), func() {
	var (
		tempDir      string
		upstream     *upstreamtest.Server
		serverHelper *helpers.ServerTestHelper
	)

	BeforeEach(func() {
		tempDir = createTempDir("catalog-sync-schedule-")
		upstream = helpers.NewUpstream(3)
	})

	AfterEach(func() {
		if serverHelper != nil {
			Expect(serverHelper.StopServer()).To(Succeed())
		}
		upstream.Close()
		cleanupTempDir(tempDir)
	})

	It("should run configured schedules without a trigger", func() {
		configFile := helpers.WriteConfigYAML(tempDir, upstream.BaseURL(), &helpers.ConfigOptions{
			Schedules: []config.ScheduleConfig{
				{Name: "seed", Mode: config.ModeSeed, Schedule: "@every 1s"},
			},
		})

		var err error
		serverHelper, err = helpers.NewServerTestHelper(ctx, configFile)
		Expect(err).NotTo(HaveOccurred())
		Expect(serverHelper.StartServer()).To(Succeed())
		serverHelper.WaitForServerReady(10 * time.Second)

		Eventually(func() int {
			resp, err := serverHelper.GetJobs("mode=seed")
			if err != nil {
				return 0
			}
			var body struct {
				Jobs []state.SyncJob `json:"jobs"`
			}
			helpers.DecodeJSON(resp, &body)
			return len(body.Jobs)
		}, 10*time.Second, 250*time.Millisecond).Should(BeNumerically(">=", 1))
	})
})
