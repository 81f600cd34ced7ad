package level

import "github.com/chainpoint/stacking-api/database"

var _ database.StackingDatabase = (*Cache)(nil)
