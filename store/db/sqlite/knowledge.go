package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/ispkb/store"
)

const knowledgeCategoryColumns = "id, category_id, title, icon, description, sort_order, is_active, created_ts, updated_ts"

func (d *DB) CreateKnowledgeCategory(ctx context.Context, create *store.KnowledgeCategory) (*store.KnowledgeCategory, error) {
	fields := []string{"`category_id`", "`title`", "`icon`", "`description`", "`sort_order`", "`is_active`"}
	args := []any{create.CategoryID, create.Title, create.Icon, create.Description, create.SortOrder, create.IsActive}
	stmt := "INSERT INTO knowledge_category (" + strings.Join(fields, ", ") + ") VALUES (" + placeholders(len(args)) + ") RETURNING " + knowledgeCategoryColumns
	category, err := scanKnowledgeCategory(d.db.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		return nil, wrapConflict(err, "failed to create knowledge category")
	}
	return category, nil
}

func (d *DB) ListKnowledgeCategories(ctx context.Context, find *store.FindKnowledgeCategory) ([]*store.KnowledgeCategory, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "id = ?"), append(args, *v)
	}
	if v := find.CategoryID; v != nil {
		where, args = append(where, "category_id = ?"), append(args, *v)
	}
	if v := find.IsActive; v != nil {
		where, args = append(where, "is_active = ?"), append(args, *v)
	}

	query := "SELECT " + knowledgeCategoryColumns + " FROM knowledge_category WHERE " + strings.Join(where, " AND ") + " ORDER BY sort_order ASC, id ASC"
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*store.KnowledgeCategory, 0)
	for rows.Next() {
		category, err := scanKnowledgeCategory(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, category)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) UpdateKnowledgeCategory(ctx context.Context, update *store.UpdateKnowledgeCategory) (*store.KnowledgeCategory, error) {
	set, args := []string{}, []any{}
	if v := update.Title; v != nil {
		set, args = append(set, "title = ?"), append(args, *v)
	}
	if v := update.Icon; v != nil {
		set, args = append(set, "icon = ?"), append(args, *v)
	}
	if v := update.Description; v != nil {
		set, args = append(set, "description = ?"), append(args, *v)
	}
	if v := update.SortOrder; v != nil {
		set, args = append(set, "sort_order = ?"), append(args, *v)
	}
	if v := update.IsActive; v != nil {
		set, args = append(set, "is_active = ?"), append(args, *v)
	}
	if v := update.UpdatedTs; v != nil {
		set, args = append(set, "updated_ts = ?"), append(args, *v)
	} else {
		set = append(set, "updated_ts = strftime('%s', 'now')")
	}
	args = append(args, update.ID)

	stmt := "UPDATE knowledge_category SET " + strings.Join(set, ", ") + " WHERE id = ? RETURNING " + knowledgeCategoryColumns
	category, err := scanKnowledgeCategory(d.db.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		return nil, errors.Wrap(err, "failed to update knowledge category")
	}
	return category, nil
}

func (d *DB) DeleteKnowledgeCategory(ctx context.Context, delete *store.DeleteKnowledgeCategory) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM knowledge_category WHERE id = ?", delete.ID); err != nil {
		return err
	}
	return nil
}

func scanKnowledgeCategory(row scanner) (*store.KnowledgeCategory, error) {
	category := &store.KnowledgeCategory{}
	if err := row.Scan(
		&category.ID,
		&category.CategoryID,
		&category.Title,
		&category.Icon,
		&category.Description,
		&category.SortOrder,
		&category.IsActive,
		&category.CreatedTs,
		&category.UpdatedTs,
	); err != nil {
		return nil, err
	}
	return category, nil
}

const knowledgeItemColumns = "id, category_id, title, description, status, content, external_link, sort_order, created_ts, updated_ts"

func (d *DB) CreateKnowledgeItem(ctx context.Context, create *store.KnowledgeItem) (*store.KnowledgeItem, error) {
	fields := []string{"`id`", "`category_id`", "`title`", "`description`", "`status`", "`content`", "`external_link`", "`sort_order`"}
	args := []any{create.ID, create.CategoryID, create.Title, create.Description, create.Status, create.Content, create.ExternalLink, create.SortOrder}
	stmt := "INSERT INTO knowledge_item (" + strings.Join(fields, ", ") + ") VALUES (" + placeholders(len(args)) + ") RETURNING " + knowledgeItemColumns
	item, err := scanKnowledgeItem(d.db.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		return nil, wrapConflict(err, "failed to create knowledge item")
	}
	return item, nil
}

func (d *DB) ListKnowledgeItems(ctx context.Context, find *store.FindKnowledgeItem) ([]*store.KnowledgeItem, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "i.id = ?"), append(args, *v)
	}
	if v := find.CategoryID; v != nil {
		where, args = append(where, "i.category_id = ?"), append(args, *v)
	}
	if v := find.Status; v != nil {
		where, args = append(where, "i.status = ?"), append(args, *v)
	}
	if v := find.TitleContains; v != nil {
		where, args = append(where, foldLike("i.title")), append(args, containsPattern(*v))
	}
	if len(find.Keywords) > 0 {
		var condition string
		condition, args = likeAny([]string{"i.title", "i.description", "i.content"}, find.Keywords, args)
		where = append(where, condition)
	}
	if find.ActiveCategoryOnly {
		where, args = append(where, "c.is_active = ?"), append(args, true)
	}

	orderBy := "i.sort_order ASC, i.created_ts ASC"
	if find.OrderByUpdated {
		orderBy = "i.updated_ts DESC, i.id ASC"
	}
	query := `
		SELECT
			i.id,
			i.category_id,
			i.title,
			i.description,
			i.status,
			i.content,
			i.external_link,
			i.sort_order,
			i.created_ts,
			i.updated_ts,
			COALESCE(c.title, '')
		FROM knowledge_item i
		LEFT JOIN knowledge_category c ON c.category_id = i.category_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY ` + orderBy
	query = paginate(query, find.Pagination)
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*store.KnowledgeItem, 0)
	for rows.Next() {
		item := &store.KnowledgeItem{}
		if err := rows.Scan(
			&item.ID,
			&item.CategoryID,
			&item.Title,
			&item.Description,
			&item.Status,
			&item.Content,
			&item.ExternalLink,
			&item.SortOrder,
			&item.CreatedTs,
			&item.UpdatedTs,
			&item.CategoryTitle,
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

func (d *DB) UpdateKnowledgeItem(ctx context.Context, update *store.UpdateKnowledgeItem) (*store.KnowledgeItem, error) {
	set, args := []string{}, []any{}
	if v := update.CategoryID; v != nil {
		set, args = append(set, "category_id = ?"), append(args, *v)
	}
	if v := update.Title; v != nil {
		set, args = append(set, "title = ?"), append(args, *v)
	}
	if v := update.Description; v != nil {
		set, args = append(set, "description = ?"), append(args, *v)
	}
	if v := update.Status; v != nil {
		set, args = append(set, "status = ?"), append(args, *v)
	}
	if v := update.Content; v != nil {
		set, args = append(set, "content = ?"), append(args, *v)
	}
	if v := update.ExternalLink; v != nil {
		set, args = append(set, "external_link = ?"), append(args, *v)
	}
	if v := update.SortOrder; v != nil {
		set, args = append(set, "sort_order = ?"), append(args, *v)
	}
	if v := update.UpdatedTs; v != nil {
		set, args = append(set, "updated_ts = ?"), append(args, *v)
	} else {
		set = append(set, "updated_ts = strftime('%s', 'now')")
	}
	args = append(args, update.ID)

	stmt := "UPDATE knowledge_item SET " + strings.Join(set, ", ") + " WHERE id = ? RETURNING " + knowledgeItemColumns
	item, err := scanKnowledgeItem(d.db.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		return nil, errors.Wrap(err, "failed to update knowledge item")
	}
	return item, nil
}

func (d *DB) DeleteKnowledgeItem(ctx context.Context, delete *store.DeleteKnowledgeItem) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM knowledge_detail WHERE knowledge_id = ?", delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete knowledge details")
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM knowledge_item WHERE id = ?", delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete knowledge item")
	}
	return tx.Commit()
}

func scanKnowledgeItem(row scanner) (*store.KnowledgeItem, error) {
	item := &store.KnowledgeItem{}
	if err := row.Scan(
		&item.ID,
		&item.CategoryID,
		&item.Title,
		&item.Description,
		&item.Status,
		&item.Content,
		&item.ExternalLink,
		&item.SortOrder,
		&item.CreatedTs,
		&item.UpdatedTs,
	); err != nil {
		return nil, err
	}
	return item, nil
}

const knowledgeDetailColumns = "id, knowledge_id, title, content, sort_order, created_ts, updated_ts"

func (d *DB) CreateKnowledgeDetail(ctx context.Context, create *store.KnowledgeDetail) (*store.KnowledgeDetail, error) {
	fields := []string{"`id`", "`knowledge_id`", "`title`", "`content`", "`sort_order`"}
	args := []any{create.ID, create.KnowledgeID, create.Title, create.Content, create.SortOrder}
	stmt := "INSERT INTO knowledge_detail (" + strings.Join(fields, ", ") + ") VALUES (" + placeholders(len(args)) + ") RETURNING " + knowledgeDetailColumns
	detail, err := scanKnowledgeDetail(d.db.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		return nil, wrapConflict(err, "failed to create knowledge detail")
	}
	return detail, nil
}

func (d *DB) ListKnowledgeDetails(ctx context.Context, find *store.FindKnowledgeDetail) ([]*store.KnowledgeDetail, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "id = ?"), append(args, *v)
	}
	if v := find.KnowledgeID; v != nil {
		where, args = append(where, "knowledge_id = ?"), append(args, *v)
	}

	query := "SELECT " + knowledgeDetailColumns + " FROM knowledge_detail WHERE " + strings.Join(where, " AND ") + " ORDER BY sort_order ASC, created_ts ASC"
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*store.KnowledgeDetail, 0)
	for rows.Next() {
		detail, err := scanKnowledgeDetail(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) UpdateKnowledgeDetail(ctx context.Context, update *store.UpdateKnowledgeDetail) (*store.KnowledgeDetail, error) {
	set, args := []string{}, []any{}
	if v := update.Title; v != nil {
		set, args = append(set, "title = ?"), append(args, *v)
	}
	if v := update.Content; v != nil {
		set, args = append(set, "content = ?"), append(args, *v)
	}
	if v := update.SortOrder; v != nil {
		set, args = append(set, "sort_order = ?"), append(args, *v)
	}
	if v := update.UpdatedTs; v != nil {
		set, args = append(set, "updated_ts = ?"), append(args, *v)
	} else {
		set = append(set, "updated_ts = strftime('%s', 'now')")
	}
	args = append(args, update.ID)

	stmt := "UPDATE knowledge_detail SET " + strings.Join(set, ", ") + " WHERE id = ? RETURNING " + knowledgeDetailColumns
	detail, err := scanKnowledgeDetail(d.db.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		return nil, errors.Wrap(err, "failed to update knowledge detail")
	}
	return detail, nil
}

func (d *DB) DeleteKnowledgeDetail(ctx context.Context, delete *store.DeleteKnowledgeDetail) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM knowledge_detail WHERE id = ?", delete.ID); err != nil {
		return err
	}
	return nil
}

func scanKnowledgeDetail(row scanner) (*store.KnowledgeDetail, error) {
	detail := &store.KnowledgeDetail{}
	if err := row.Scan(
		&detail.ID,
		&detail.KnowledgeID,
		&detail.Title,
		&detail.Content,
		&detail.SortOrder,
		&detail.CreatedTs,
		&detail.UpdatedTs,
	); err != nil {
		return nil, err
	}
	return detail, nil
}
