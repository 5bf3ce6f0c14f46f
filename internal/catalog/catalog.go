// Package catalog implements CRUD over the tenant/environment/collection
// hierarchy and its users, each serialized as a JSON blob keyed by id in its
// own kvstore tree.
package catalog

import (
	"encoding/json"

	"github.com/shailendrapspundhir/aidb/internal/aidberr"
	"github.com/shailendrapspundhir/aidb/internal/kvstore"
)

// Catalog is the entity CRUD layer fronting the users/tenants/environments/
// collections trees.
type Catalog struct {
	store *kvstore.Store
}

// New wraps store as a Catalog.
func New(store *kvstore.Store) *Catalog {
	return &Catalog{store: store}
}

// CreateUser inserts user, failing KindAlreadyExists if username is taken.
// This is the one entity kind checked for a conflict on creation; Tenant,
// Environment, and Collection creation below are unconditional overwrites
// (see DESIGN.md).
func (c *Catalog) CreateUser(u User) error {
	tree := c.store.Tree(kvstore.TreeUsers)
	exists, err := tree.Contains([]byte(u.Username))
	if err != nil {
		return err
	}
	if exists {
		return aidberr.AlreadyExists("catalog.CreateUser", nil)
	}
	return putJSON(tree, u.Username, u, "catalog.CreateUser")
}

// GetUser returns the user with the given username, or (nil, nil) if absent.
func (c *Catalog) GetUser(username string) (*User, error) {
	var u User
	ok, err := getJSON(c.store.Tree(kvstore.TreeUsers), username, &u, "catalog.GetUser")
	if err != nil || !ok {
		return nil, err
	}
	return &u, nil
}

// UpdateUser unconditionally overwrites the stored User.
func (c *Catalog) UpdateUser(u User) error {
	return putJSON(c.store.Tree(kvstore.TreeUsers), u.Username, u, "catalog.UpdateUser")
}

// CreateTenant inserts tenant, unconditionally overwriting any existing
// entry with the same id (see DESIGN.md).
func (c *Catalog) CreateTenant(t Tenant) error {
	return putJSON(c.store.Tree(kvstore.TreeTenants), t.ID, t, "catalog.CreateTenant")
}

// GetTenant returns the tenant with the given id, or (nil, nil) if absent.
func (c *Catalog) GetTenant(id string) (*Tenant, error) {
	var t Tenant
	ok, err := getJSON(c.store.Tree(kvstore.TreeTenants), id, &t, "catalog.GetTenant")
	if err != nil || !ok {
		return nil, err
	}
	return &t, nil
}

// UpdateTenant unconditionally overwrites the stored Tenant.
func (c *Catalog) UpdateTenant(t Tenant) error {
	return putJSON(c.store.Tree(kvstore.TreeTenants), t.ID, t, "catalog.UpdateTenant")
}

// CreateEnvironment inserts env, unconditionally overwriting any existing
// entry with the same id.
func (c *Catalog) CreateEnvironment(e Environment) error {
	return putJSON(c.store.Tree(kvstore.TreeEnvironments), e.ID, e, "catalog.CreateEnvironment")
}

// GetEnvironment returns the environment with the given id, or (nil, nil)
// if absent.
func (c *Catalog) GetEnvironment(id string) (*Environment, error) {
	var e Environment
	ok, err := getJSON(c.store.Tree(kvstore.TreeEnvironments), id, &e, "catalog.GetEnvironment")
	if err != nil || !ok {
		return nil, err
	}
	return &e, nil
}

// UpdateEnvironment unconditionally overwrites the stored Environment.
func (c *Catalog) UpdateEnvironment(e Environment) error {
	return putJSON(c.store.Tree(kvstore.TreeEnvironments), e.ID, e, "catalog.UpdateEnvironment")
}

// CreateCollection inserts col, unconditionally overwriting any existing
// entry with the same id.
func (c *Catalog) CreateCollection(col Collection) error {
	return putJSON(c.store.Tree(kvstore.TreeCollections), col.ID, col, "catalog.CreateCollection")
}

// GetCollection returns the collection with the given id, or (nil, nil) if
// absent.
func (c *Catalog) GetCollection(id string) (*Collection, error) {
	var col Collection
	ok, err := getJSON(c.store.Tree(kvstore.TreeCollections), id, &col, "catalog.GetCollection")
	if err != nil || !ok {
		return nil, err
	}
	return &col, nil
}

// UpdateCollection unconditionally overwrites the stored Collection.
func (c *Catalog) UpdateCollection(col Collection) error {
	return putJSON(c.store.Tree(kvstore.TreeCollections), col.ID, col, "catalog.UpdateCollection")
}

// DeleteCollectionEntity removes the Collection entity itself (not its
// documents — that cascade lives in docstore.DeleteCollection).
func (c *Catalog) DeleteCollectionEntity(id string) error {
	if err := c.store.Tree(kvstore.TreeCollections).Remove([]byte(id)); err != nil {
		return err
	}
	return nil
}

// AppendEnvironmentToTenant performs the read-modify-write that links a
// newly created Environment into its parent Tenant's child list. This is
// not atomic with the Environment's creation — a crash between the two
// leaves the environment addressable by id but absent from the tenant's
// list.
func (c *Catalog) AppendEnvironmentToTenant(tenantID, envID string) error {
	t, err := c.GetTenant(tenantID)
	if err != nil {
		return err
	}
	if t == nil {
		return aidberr.NotFound("catalog.AppendEnvironmentToTenant", nil)
	}
	t.Environments = append(t.Environments, envID)
	return c.UpdateTenant(*t)
}

// AppendCollectionToEnvironment performs the read-modify-write that links a
// newly created Collection into its parent Environment's child list.
func (c *Catalog) AppendCollectionToEnvironment(envID, collectionID string) error {
	e, err := c.GetEnvironment(envID)
	if err != nil {
		return err
	}
	if e == nil {
		return aidberr.NotFound("catalog.AppendCollectionToEnvironment", nil)
	}
	e.Collections = append(e.Collections, collectionID)
	return c.UpdateEnvironment(*e)
}

// RemoveCollectionFromEnvironment drops collectionID from env's child list,
// part of the collection-deletion cascade.
func (c *Catalog) RemoveCollectionFromEnvironment(envID, collectionID string) error {
	e, err := c.GetEnvironment(envID)
	if err != nil {
		return err
	}
	if e == nil {
		return aidberr.NotFound("catalog.RemoveCollectionFromEnvironment", nil)
	}
	filtered := e.Collections[:0]
	for _, id := range e.Collections {
		if id != collectionID {
			filtered = append(filtered, id)
		}
	}
	e.Collections = filtered
	return c.UpdateEnvironment(*e)
}

// AppendTenantToUser performs the read-modify-write that links a newly
// created Tenant into its owning User's child list.
func (c *Catalog) AppendTenantToUser(username, tenantID string) error {
	u, err := c.GetUser(username)
	if err != nil {
		return err
	}
	if u == nil {
		return aidberr.NotFound("catalog.AppendTenantToUser", nil)
	}
	u.Tenants = append(u.Tenants, tenantID)
	return c.UpdateUser(*u)
}

func putJSON(tree *kvstore.Tree, key string, v interface{}, op string) error {
	data, err := json.Marshal(v)
	if err != nil {
		return aidberr.BadInput(op, err)
	}
	return tree.Insert([]byte(key), data)
}

func getJSON(tree *kvstore.Tree, key string, out interface{}, op string) (bool, error) {
	data, ok, err := tree.Get([]byte(key))
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, aidberr.BadInput(op, err)
	}
	return true, nil
}
