package render

const handlebarsPage = `<!DOCTYPE html>
<html>
  <head>
    <meta charset="UTF-8">
    <title>{{title}}</title>
  </head>
  <body>
    {{{body}}}
  </body>
</html>`

const handlebarsAutoindex = `<!DOCTYPE html>
<html>
  <head>
    <meta charset="UTF-8">
    <title>Index of {{index.current.pwd}}</title>
  </head>
  <body>
    <h1>Index of {{index.current.pwd}}</h1>
    <ul>
{{#if index.parent}}
      <li><a href="{{base}}{{index.parent.pwd}}">../</a></li>
{{/if}}
{{#each index.current.items}}
      <li><a href="{{../base}}{{../index.current.pwd}}{{name}}">{{name}}</a> {{mtime}}{{#unless dir}} {{size}}{{/unless}}</li>
{{/each}}
    </ul>
  </body>
</html>`

const mustachePage = `<!DOCTYPE html>
<html>
  <head>
    <meta charset="UTF-8">
    <title>{{title}}</title>
  </head>
  <body>
    {{{body}}}
  </body>
</html>`

const mustacheAutoindex = `<!DOCTYPE html>
<html>
  <head>
    <meta charset="UTF-8">
    <title>Index of {{index.current.pwd}}</title>
  </head>
  <body>
    <h1>Index of {{index.current.pwd}}</h1>
    <ul>
{{#index.parent}}
      <li><a href="{{base}}{{pwd}}">../</a></li>
{{/index.parent}}
{{#index.current}}
{{#items}}
      <li><a href="{{base}}{{pwd}}{{name}}">{{name}}</a> {{mtime}}{{^dir}} {{size}}{{/dir}}</li>
{{/items}}
{{/index.current}}
    </ul>
  </body>
</html>`

var handlebarsBuiltins = map[Kind]string{
	KindPage:      handlebarsPage,
	KindAutoindex: handlebarsAutoindex,
}

var mustacheBuiltins = map[Kind]string{
	KindPage:      mustachePage,
	KindAutoindex: mustacheAutoindex,
}
