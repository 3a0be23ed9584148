// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package usermgmt_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/usermgmt/internal/auth"
	"github.com/holomush/usermgmt/internal/auth/postgres"
	"github.com/holomush/usermgmt/internal/auth/redisstore"
)

type backend struct {
	name    string
	newRepo func() auth.Repository
}

var backends = []backend{
	{
		name:    "postgres",
		newRepo: func() auth.Repository { return postgres.NewUserRepository(env.databaseURL) },
	},
	{
		name: "redis",
		newRepo: func() auth.Repository {
			repo, err := redisstore.NewUserRepositoryFromURL(env.redisURL, "usermgmt_it")
			Expect(err).NotTo(HaveOccurred())
			return repo
		},
	},
}

var _ = Describe("Manager", func() {
	for _, b := range backends {
		Context("over "+b.name, func() {
			var (
				ctx     context.Context
				manager *auth.Manager
				now     atomic.Int64
			)

			BeforeEach(func() {
				ctx = context.Background()
				now.Store(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC).UnixNano())

				var err error
				manager, err = auth.NewManager(b.newRepo(), auth.Config{
					HashIterations:   auth.MinHashIterations,
					TokenExpiryHours: 1,
				}, auth.WithClock(func() time.Time { return time.Unix(0, now.Load()).UTC() }))
				Expect(err).NotTo(HaveOccurred())
				Expect(manager.Load(ctx)).To(Succeed())
				Expect(manager.ResetForTests(ctx)).To(Succeed())
			})

			AfterEach(func() {
				Expect(manager.Close(ctx)).To(Succeed())
			})

			It("creates, authenticates and lists users", func() {
				Expect(manager.CreateUser(ctx, "alice", "s3cret", auth.Extras{"role": "admin"})).To(Succeed())
				Expect(manager.CreateUser(ctx, "bob", "hunter2", nil)).To(Succeed())

				exists, err := manager.UserExists(ctx, "alice")
				Expect(err).NotTo(HaveOccurred())
				Expect(exists).To(BeTrue())

				res, err := manager.AuthenticateUser(ctx, "alice", "s3cret")
				Expect(err).NotTo(HaveOccurred())
				Expect(res.UserExists).To(BeTrue())
				Expect(res.PasswordsMatch).To(BeTrue())
				Expect(res.Token).NotTo(BeEmpty())

				res, err = manager.AuthenticateUser(ctx, "alice", "wrong")
				Expect(err).NotTo(HaveOccurred())
				Expect(res).To(Equal(auth.AuthResult{UserExists: true}))

				res, err = manager.AuthenticateUser(ctx, "nobody", "x")
				Expect(err).NotTo(HaveOccurred())
				Expect(res).To(Equal(auth.AuthResult{}))

				names, err := manager.GetUserList(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(names).To(ConsistOf("alice", "bob"))
			})

			It("rejects a duplicate username", func() {
				Expect(manager.CreateUser(ctx, "alice", "one", nil)).To(Succeed())

				err := manager.CreateUser(ctx, "alice", "two", nil)
				Expect(errors.Is(err, auth.ErrAlreadyExists)).To(BeTrue())
			})

			It("lets exactly one concurrent create win", func() {
				const workers = 8
				var (
					wg        sync.WaitGroup
					successes atomic.Int32
					conflicts atomic.Int32
				)
				for range workers {
					wg.Add(1)
					go func() {
						defer GinkgoRecover()
						defer wg.Done()
						err := manager.CreateUser(ctx, "racer", "pw", nil)
						switch {
						case err == nil:
							successes.Add(1)
						case errors.Is(err, auth.ErrAlreadyExists):
							conflicts.Add(1)
						default:
							Fail("unexpected error: " + err.Error())
						}
					}()
				}
				wg.Wait()

				Expect(successes.Load()).To(Equal(int32(1)))
				Expect(conflicts.Load()).To(Equal(int32(workers - 1)))
			})

			It("keeps one live token per user and expires it lazily", func() {
				Expect(manager.CreateUser(ctx, "carol", "pw", nil)).To(Succeed())

				first, err := manager.AuthenticateUser(ctx, "carol", "pw")
				Expect(err).NotTo(HaveOccurred())
				second, err := manager.AuthenticateUser(ctx, "carol", "pw")
				Expect(err).NotTo(HaveOccurred())
				Expect(second.Token).NotTo(Equal(first.Token))

				valid, err := manager.IsTokenValid(ctx, first.Token)
				Expect(err).NotTo(HaveOccurred())
				Expect(valid).To(BeFalse(), "a new login replaces the old token")

				valid, err = manager.IsTokenValid(ctx, second.Token)
				Expect(err).NotTo(HaveOccurred())
				Expect(valid).To(BeTrue())

				now.Add(int64(2 * time.Hour))

				valid, err = manager.IsTokenValid(ctx, second.Token)
				Expect(err).NotTo(HaveOccurred())
				Expect(valid).To(BeFalse())

				username, ok, err := manager.UsernameForToken(ctx, second.Token)
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeTrue(), "lookups ignore expiry")
				Expect(username).To(Equal("carol"))

				token, ok, err := manager.TokenForUsername(ctx, "carol")
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeTrue())
				Expect(token).To(Equal(second.Token))

				Expect(manager.ExpireToken(ctx, second.Token)).To(Succeed())
				_, ok, err = manager.TokenForUsername(ctx, "carol")
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeFalse())
			})

			It("round-trips extras by username and by token", func() {
				Expect(manager.CreateUser(ctx, "dave", "pw", auth.Extras{"level": 3, "tags": []any{"a", "b"}})).To(Succeed())

				extras, ok, err := manager.GetExtrasForUsername(ctx, "dave")
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeTrue())
				Expect(extras).To(HaveKeyWithValue("level", BeNumerically("==", 3)))
				Expect(extras).To(HaveKeyWithValue("tags", ConsistOf("a", "b")))

				res, err := manager.AuthenticateUser(ctx, "dave", "pw")
				Expect(err).NotTo(HaveOccurred())
				Expect(manager.SetExtrasForToken(ctx, res.Token, auth.Extras{"theme": "dark"})).To(Succeed())

				extras, ok, err = manager.GetExtrasForToken(ctx, res.Token)
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeTrue())
				Expect(extras).To(Equal(auth.Extras{"theme": "dark"}))
			})

			It("changes and resets passwords, logging the user out", func() {
				Expect(manager.CreateUser(ctx, "erin", "old-pw", nil)).To(Succeed())
				res, err := manager.AuthenticateUser(ctx, "erin", "old-pw")
				Expect(err).NotTo(HaveOccurred())

				Expect(manager.ChangePassword(ctx, res.Token, "old-pw", "new-pw")).To(Succeed())

				valid, err := manager.IsTokenValid(ctx, res.Token)
				Expect(err).NotTo(HaveOccurred())
				Expect(valid).To(BeFalse())

				res, err = manager.AuthenticateUser(ctx, "erin", "new-pw")
				Expect(err).NotTo(HaveOccurred())
				Expect(res.PasswordsMatch).To(BeTrue())

				generated, err := manager.ResetPassword(ctx, "erin")
				Expect(err).NotTo(HaveOccurred())
				Expect(generated).To(HaveLen(16))

				res, err = manager.AuthenticateUser(ctx, "erin", generated)
				Expect(err).NotTo(HaveOccurred())
				Expect(res.PasswordsMatch).To(BeTrue())
			})

			It("removes users idempotently", func() {
				Expect(manager.CreateUser(ctx, "frank", "pw", nil)).To(Succeed())

				Expect(manager.RemoveUser(ctx, "frank")).To(Succeed())
				Expect(manager.RemoveUser(ctx, "frank")).To(Succeed())

				exists, err := manager.UserExists(ctx, "frank")
				Expect(err).NotTo(HaveOccurred())
				Expect(exists).To(BeFalse())
			})
		})
	}
})
