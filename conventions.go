package activerecord

import "github.com/go-openapi/inflect"

// tableize derives the conventional table name from an entity type name:
// lowercase, underscored, pluralized. "OrderItem" -> "order_items".
func tableize(typeName string) string {
	return inflect.Tableize(typeName)
}

// foreignKeyFor derives the conventional foreign-key column for a type or
// relationship name. "Order" -> "order_id", "author" -> "author_id".
func foreignKeyFor(name string) string {
	return inflect.ForeignKey(inflect.Singularize(name))
}

// typeNameFor derives the conventional related entity type name from a
// relationship name. "items" -> "Item", "author" -> "Author".
func typeNameFor(relationship string) string {
	return inflect.Camelize(inflect.Singularize(relationship))
}
