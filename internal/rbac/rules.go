package rbac

// Default policy for the four portal roles.
var RolePermissions = map[string][]string{
	"student": {
		"test:take",
		"attempt:save",
		"attempt:submit",
		"result:view-own",
		"analytics:view-own",
	},
	"guardian": {
		"result:view-own",
		"analytics:view-own",
	},
	"faculty": {
		"test:create",
		"test:edit",
		"test:deploy",
		"test:view-own",
		"test:sweep",
		"attempt:view-all",
		"attempt:adjust",
		"analytics:view",
	},
	"admin": {
		"*", // everything
	},
}
