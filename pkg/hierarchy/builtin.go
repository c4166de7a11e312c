package hierarchy

import "github.com/Sumatoshi-tech/modelfinder/pkg/phpast"

// EloquentModel is the base type of every Laravel Eloquent model.
const EloquentModel = `Illuminate\Database\Eloquent\Model`

// builtinClasses are framework classes that are usually not part of a scan but
// appear as parents of application models.
var builtinClasses = []phpast.ClassDecl{
	{Name: EloquentModel, Namespace: `Illuminate\Database\Eloquent`, Abstract: true},
	{Name: `Illuminate\Foundation\Auth\User`, Namespace: `Illuminate\Foundation\Auth`, Parent: EloquentModel},
	{Name: `Illuminate\Database\Eloquent\Relations\Pivot`, Namespace: `Illuminate\Database\Eloquent\Relations`, Parent: EloquentModel},
	{
		Name:      `Illuminate\Database\Eloquent\Relations\MorphPivot`,
		Namespace: `Illuminate\Database\Eloquent\Relations`,
		Parent:    `Illuminate\Database\Eloquent\Relations\Pivot`,
	},
	{Name: `Illuminate\Notifications\DatabaseNotification`, Namespace: `Illuminate\Notifications`, Parent: EloquentModel},
}
