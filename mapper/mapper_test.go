package mapper_test

import (
	"strings"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/pluvio/dbx/mapper"
)

const usersXML = `<?xml version="1.0" encoding="UTF-8"?>
<mapper namespace="users">
  <sql id="cols">id, name, created_at</sql>
  <select id="byName">
    select <include refid="cols"/> from users
    where name = #{name} <!-- exact match only -->
  </select>
  <select id="recent">
    select <include refid="users.cols"/> from users where created_at &gt; #{cutoff}
  </select>
  <insert id="create" useGeneratedKeys="true" keyColumn="id">
    insert into users (name) values (#{name})
  </insert>
  <update id="rename">update users set name = #{name} where id = #{id}</update>
  <delete id="purge">
    delete from users
    <if test="before != null"> where created_at &lt; #{before}</if>
  </delete>
</mapper>`

func TestParse_Statements(t *testing.T) {
	stmts, err := mapper.Parse(strings.NewReader(usersXML))
	assert.NilError(t, err)
	assert.Assert(t, cmp.Len(stmts, 6))

	byID := map[string]mapper.Statement{}
	for _, st := range stmts {
		assert.Check(t, cmp.Equal(st.Namespace, "users"))
		byID[st.ID] = st
	}

	cols := byID["cols"]
	assert.Check(t, cmp.Equal(cols.Kind, mapper.KindSQL))
	assert.Check(t, cmp.Equal(cols.Content, "id, name, created_at"))
	assert.Check(t, cmp.Equal(cols.Name(), "users.cols"))

	t.Run("bare refid is namespace qualified", func(t *testing.T) {
		assert.Check(t, cmp.Contains(byID["byName"].Content, `<include refid="users.cols"/>`))
	})

	t.Run("qualified refid passes through", func(t *testing.T) {
		assert.Check(t, cmp.Contains(byID["recent"].Content, `<include refid="users.cols"/>`))
	})

	t.Run("entities decode and comments drop", func(t *testing.T) {
		assert.Check(t, cmp.Contains(byID["recent"].Content, "created_at > #{cutoff}"))
		assert.Check(t, !strings.Contains(byID["byName"].Content, "exact match"))
	})

	t.Run("insert key metadata", func(t *testing.T) {
		create := byID["create"]
		assert.Check(t, cmp.Equal(create.Kind, mapper.KindInsert))
		assert.Check(t, create.UseGeneratedKeys)
		assert.Check(t, cmp.Equal(create.KeyColumn, "id"))
	})

	t.Run("single line statement is exact", func(t *testing.T) {
		rename := byID["rename"]
		assert.Check(t, cmp.Equal(rename.Kind, mapper.KindUpdate))
		assert.Check(t, cmp.Equal(rename.Content, "update users set name = #{name} where id = #{id}"))
	})

	t.Run("directive tags survive for the template engine", func(t *testing.T) {
		assert.Check(t, cmp.Contains(byID["purge"].Content,
			`<if test="before != null"> where created_at < #{before}</if>`))
	})
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "namespace missing",
			doc:  `<mapper><select id="a">select 1</select></mapper>`,
			want: "requires a namespace attribute",
		},
		{
			name: "root is not mapper",
			doc:  `<statements><select id="a">select 1</select></statements>`,
			want: "root element must be <mapper>",
		},
		{
			name: "empty document",
			doc:  ``,
			want: "no mapper element found",
		},
		{
			name: "unknown statement element",
			doc:  `<mapper namespace="n"><query id="a">select 1</query></mapper>`,
			want: "unsupported element <query>",
		},
		{
			name: "id missing",
			doc:  `<mapper namespace="n"><select>select 1</select></mapper>`,
			want: "<select> requires an id attribute",
		},
		{
			name: "unsupported body tag",
			doc:  `<mapper namespace="n"><select id="a">select <where>1</where></select></mapper>`,
			want: "unsupported tag <where>",
		},
		{
			name: "include without refid",
			doc:  `<mapper namespace="n"><select id="a"><include/></select></mapper>`,
			want: "<include> requires a refid attribute",
		},
		{
			name: "mismatched closing tag",
			doc:  `<mapper namespace="n"><select id="a">select 1</mapper>`,
			want: "unterminated <select>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mapper.Parse(strings.NewReader(tt.doc))
			assert.Check(t, cmp.ErrorContains(err, tt.want))
		})
	}
}
