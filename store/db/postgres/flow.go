package postgres

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/ispkb/store"
)

const flowVersionColumns = "id, version_id, title, description, is_active, is_default, created_ts, updated_ts"

// CreateFlowVersion inserts the version and, when it is the default, clears
// the flag on every other version in the same transaction.
func (d *DB) CreateFlowVersion(ctx context.Context, create *store.FlowVersion) (*store.FlowVersion, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	fields := []string{"version_id", "title", "description", "is_active", "is_default"}
	args := []any{create.VersionID, create.Title, create.Description, create.IsActive, create.IsDefault}
	stmt := "INSERT INTO flow_version (" + strings.Join(fields, ", ") + ") VALUES (" + placeholders(len(args)) + ") RETURNING " + flowVersionColumns
	version, err := scanFlowVersion(tx.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		return nil, wrapConflict(err, "failed to create flow version")
	}
	if version.IsDefault {
		if _, err := tx.ExecContext(ctx, "UPDATE flow_version SET is_default = FALSE WHERE id <> $1", version.ID); err != nil {
			return nil, errors.Wrap(err, "failed to clear default flow version")
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit transaction")
	}
	return version, nil
}

func (d *DB) ListFlowVersions(ctx context.Context, find *store.FindFlowVersion) ([]*store.FlowVersion, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.VersionID; v != nil {
		where, args = append(where, "version_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.IsActive; v != nil {
		where, args = append(where, "is_active = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.IsDefault; v != nil {
		where, args = append(where, "is_default = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := "SELECT " + flowVersionColumns + " FROM flow_version WHERE " + strings.Join(where, " AND ") + " ORDER BY is_default DESC, created_ts ASC, id ASC"
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*store.FlowVersion, 0)
	for rows.Next() {
		version, err := scanFlowVersion(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, version)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) UpdateFlowVersion(ctx context.Context, update *store.UpdateFlowVersion) (*store.FlowVersion, error) {
	set, args := []string{}, []any{}
	if v := update.Title; v != nil {
		set, args = append(set, "title = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Description; v != nil {
		set, args = append(set, "description = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.IsActive; v != nil {
		set, args = append(set, "is_active = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.IsDefault; v != nil {
		set, args = append(set, "is_default = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.UpdatedTs; v != nil {
		set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, *v)
	} else {
		set = append(set, "updated_ts = EXTRACT(EPOCH FROM NOW())::BIGINT")
	}
	args = append(args, update.ID)

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	stmt := "UPDATE flow_version SET " + strings.Join(set, ", ") + " WHERE id = " + placeholder(len(args)) + " RETURNING " + flowVersionColumns
	version, err := scanFlowVersion(tx.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		return nil, errors.Wrap(err, "failed to update flow version")
	}
	if update.IsDefault != nil && *update.IsDefault {
		if _, err := tx.ExecContext(ctx, "UPDATE flow_version SET is_default = FALSE WHERE id <> $1", version.ID); err != nil {
			return nil, errors.Wrap(err, "failed to clear default flow version")
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit transaction")
	}
	return version, nil
}

func (d *DB) DeleteFlowVersion(ctx context.Context, delete *store.DeleteFlowVersion) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM flow_version WHERE id = $1", delete.ID); err != nil {
		return err
	}
	return nil
}

func scanFlowVersion(row scanner) (*store.FlowVersion, error) {
	version := &store.FlowVersion{}
	if err := row.Scan(
		&version.ID,
		&version.VersionID,
		&version.Title,
		&version.Description,
		&version.IsActive,
		&version.IsDefault,
		&version.CreatedTs,
		&version.UpdatedTs,
	); err != nil {
		return nil, err
	}
	return version, nil
}

const flowModuleColumns = "id, version_id, module_id, title, description, module_type, introduction, principle, constraints, external_link, position_x, position_y, created_ts, updated_ts"

func (d *DB) CreateFlowModule(ctx context.Context, create *store.FlowModule) (*store.FlowModule, error) {
	fields := []string{"version_id", "module_id", "title", "description", "module_type", "introduction", "principle", "constraints", "external_link", "position_x", "position_y"}
	args := []any{create.VersionID, create.ModuleID, create.Title, create.Description, create.ModuleType, create.Introduction, create.Principle, create.Constraints, create.ExternalLink, create.PositionX, create.PositionY}
	stmt := "INSERT INTO flow_module (" + strings.Join(fields, ", ") + ") VALUES (" + placeholders(len(args)) + ") RETURNING " + flowModuleColumns
	module, err := scanFlowModule(d.db.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		return nil, wrapConflict(err, "failed to create flow module")
	}
	return module, nil
}

func (d *DB) ListFlowModules(ctx context.Context, find *store.FindFlowModule) ([]*store.FlowModule, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "m.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.VersionID; v != nil {
		where, args = append(where, "m.version_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.ModuleID; v != nil {
		where, args = append(where, "m.module_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.TitleContains; v != nil {
		where, args = append(where, "LOWER(m.title) LIKE "+placeholder(len(args)+1)+` ESCAPE '\'`), append(args, containsPattern(*v))
	}
	if len(find.Keywords) > 0 {
		var condition string
		condition, args = likeAny([]string{"m.title", "m.description", "m.introduction", "m.principle"}, find.Keywords, args)
		where = append(where, condition)
	}
	if find.ActiveVersionOnly {
		where, args = append(where, "v.is_active = "+placeholder(len(args)+1)), append(args, true)
	}

	query := `
		SELECT
			m.id,
			m.version_id,
			m.module_id,
			m.title,
			m.description,
			m.module_type,
			m.introduction,
			m.principle,
			m.constraints,
			m.external_link,
			m.position_x,
			m.position_y,
			m.created_ts,
			m.updated_ts,
			COALESCE(v.title, '')
		FROM flow_module m
		LEFT JOIN flow_version v ON v.version_id = m.version_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY m.position_y ASC, m.position_x ASC, m.id ASC`
	query = paginate(query, find.Pagination)
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*store.FlowModule, 0)
	for rows.Next() {
		module := &store.FlowModule{}
		if err := rows.Scan(
			&module.ID,
			&module.VersionID,
			&module.ModuleID,
			&module.Title,
			&module.Description,
			&module.ModuleType,
			&module.Introduction,
			&module.Principle,
			&module.Constraints,
			&module.ExternalLink,
			&module.PositionX,
			&module.PositionY,
			&module.CreatedTs,
			&module.UpdatedTs,
			&module.VersionTitle,
		); err != nil {
			return nil, err
		}
		list = append(list, module)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) UpdateFlowModule(ctx context.Context, update *store.UpdateFlowModule) (*store.FlowModule, error) {
	set, args := []string{}, []any{}
	if v := update.Title; v != nil {
		set, args = append(set, "title = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Description; v != nil {
		set, args = append(set, "description = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.ModuleType; v != nil {
		set, args = append(set, "module_type = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Introduction; v != nil {
		set, args = append(set, "introduction = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Principle; v != nil {
		set, args = append(set, "principle = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Constraints; v != nil {
		set, args = append(set, "constraints = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.ExternalLink; v != nil {
		set, args = append(set, "external_link = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.PositionX; v != nil {
		set, args = append(set, "position_x = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.PositionY; v != nil {
		set, args = append(set, "position_y = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.UpdatedTs; v != nil {
		set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, *v)
	} else {
		set = append(set, "updated_ts = EXTRACT(EPOCH FROM NOW())::BIGINT")
	}
	args = append(args, update.ID)

	stmt := "UPDATE flow_module SET " + strings.Join(set, ", ") + " WHERE id = " + placeholder(len(args)) + " RETURNING " + flowModuleColumns
	module, err := scanFlowModule(d.db.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		return nil, errors.Wrap(err, "failed to update flow module")
	}
	return module, nil
}

func (d *DB) DeleteFlowModule(ctx context.Context, delete *store.DeleteFlowModule) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM flow_module WHERE id = $1", delete.ID); err != nil {
		return err
	}
	return nil
}

func scanFlowModule(row scanner) (*store.FlowModule, error) {
	module := &store.FlowModule{}
	if err := row.Scan(
		&module.ID,
		&module.VersionID,
		&module.ModuleID,
		&module.Title,
		&module.Description,
		&module.ModuleType,
		&module.Introduction,
		&module.Principle,
		&module.Constraints,
		&module.ExternalLink,
		&module.PositionX,
		&module.PositionY,
		&module.CreatedTs,
		&module.UpdatedTs,
	); err != nil {
		return nil, err
	}
	return module, nil
}

func (d *DB) ListFlowArchitectures(ctx context.Context, find *store.FindFlowArchitecture) ([]*store.FlowArchitecture, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.Domain; v != nil {
		where, args = append(where, "domain = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.IsActive; v != nil {
		where, args = append(where, "is_active = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := "SELECT id, domain, title, sort_order, is_active FROM flow_architecture WHERE " + strings.Join(where, " AND ") + " ORDER BY sort_order ASC, id ASC"
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*store.FlowArchitecture, 0)
	for rows.Next() {
		architecture := &store.FlowArchitecture{}
		if err := rows.Scan(
			&architecture.ID,
			&architecture.Domain,
			&architecture.Title,
			&architecture.SortOrder,
			&architecture.IsActive,
		); err != nil {
			return nil, err
		}
		list = append(list, architecture)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) ListFlowArchitectureItems(ctx context.Context, find *store.FindFlowArchitecture) ([]*store.FlowArchitectureItem, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.Domain; v != nil {
		where, args = append(where, "domain = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.IsActive; v != nil {
		where, args = append(where, "is_active = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := "SELECT id, domain, item_id, title, description, item_type, sort_order, is_active FROM flow_architecture_item WHERE " + strings.Join(where, " AND ") + " ORDER BY domain ASC, sort_order ASC, id ASC"
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*store.FlowArchitectureItem, 0)
	for rows.Next() {
		item := &store.FlowArchitectureItem{}
		if err := rows.Scan(
			&item.ID,
			&item.Domain,
			&item.ItemID,
			&item.Title,
			&item.Description,
			&item.ItemType,
			&item.SortOrder,
			&item.IsActive,
		); err != nil {
			return nil, err
		}
		list = append(list, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
