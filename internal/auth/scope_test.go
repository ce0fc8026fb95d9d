package auth

import (
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/safetyops/permit-management/internal/user"
)

var _ = ginkgo.Describe("Scope", func() {
	ginkgo.Describe("ScopeFor", func() {
		ginkgo.It("should grant ADMIN full visibility", func() {
			admin := &user.User{ID: 1, Role: user.RoleAdmin}
			scope := ScopeFor(admin)

			gomega.Expect(scope.All).To(gomega.BeTrue())
			gomega.Expect(scope.UserID).To(gomega.Equal(int64(1)))
		})

		ginkgo.It("should restrict CLIENT to its own records", func() {
			client := &user.User{ID: 7, Role: user.RoleClient}
			scope := ScopeFor(client)

			gomega.Expect(scope.All).To(gomega.BeFalse())
			gomega.Expect(scope.UserID).To(gomega.Equal(int64(7)))
		})
	})

	ginkgo.Describe("Allows", func() {
		ginkgo.It("should let an ADMIN scope see any owner", func() {
			scope := Scope{UserID: 1, All: true}
			gomega.Expect(scope.Allows(1)).To(gomega.BeTrue())
			gomega.Expect(scope.Allows(99)).To(gomega.BeTrue())
		})

		ginkgo.It("should let a CLIENT scope see only its own records", func() {
			scope := Scope{UserID: 7}
			gomega.Expect(scope.Allows(7)).To(gomega.BeTrue())
			gomega.Expect(scope.Allows(8)).To(gomega.BeFalse())
		})
	})
})
